package parser

import "fmt"

// lexer scans Enoki source into tokens. "#" starts a comment that runs to
// the end of the line; string literals are single-line.
type lexer struct {
	src    string
	cur    int
	line   int
	col    int
	tokens []Token

	tokLine int
	tokCol  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch, true
}

func (l *lexer) add(tt TokenType, text string) {
	l.tokens = append(l.tokens, Token{Type: tt, Text: text, Line: l.tokLine, Col: l.tokCol})
}

func (l *lexer) err(msg string) error {
	return &Error{Line: l.tokLine, Col: l.tokCol, Msg: msg}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

func (l *lexer) skipBlanksAndComments() {
	for {
		b, ok := l.peek()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '#':
			for {
				b, ok := l.peek()
				if !ok || b == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// twoChar consumes the next byte and records a two-character token when it
// matches want, otherwise records the one-character fallback.
func (l *lexer) twoChar(want byte, two TokenType, twoText string, one TokenType, oneText string) {
	if b, ok := l.peek(); ok && b == want {
		l.advance()
		l.add(two, twoText)
		return
	}
	l.add(one, oneText)
}

func (l *lexer) scanString() error {
	var out []byte
	for {
		ch, ok := l.advance()
		if !ok {
			return l.err("string literal was not terminated")
		}
		switch ch {
		case '"':
			l.add(STRING, string(out))
			return nil
		case '\n':
			return l.err("string literal spans multiple lines")
		case '\\':
			esc, ok := l.advance()
			if !ok {
				return l.err("string literal was not terminated")
			}
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			default:
				return l.err(fmt.Sprintf("invalid escape sequence \\%c", esc))
			}
		default:
			out = append(out, ch)
		}
	}
}

func (l *lexer) scanNumber(first byte) {
	text := []byte{first}
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
		text = append(text, b)
	}
	l.add(INT, string(text))
}

func (l *lexer) scanIdentifier(first byte) {
	text := []byte{first}
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
		text = append(text, b)
	}
	word := string(text)
	if tt, ok := keywords[word]; ok {
		l.add(tt, word)
		return
	}
	l.add(IDENT, word)
}

// scan tokenizes the whole source. The returned slice always ends with an
// EOF token carrying the end-of-input position.
func (l *lexer) scan() ([]Token, error) {
	for {
		l.skipBlanksAndComments()
		l.tokLine = l.line
		l.tokCol = l.col
		ch, ok := l.advance()
		if !ok {
			l.add(EOF, "")
			return l.tokens, nil
		}

		switch ch {
		case '(':
			l.add(LPAREN, "(")
		case ')':
			l.add(RPAREN, ")")
		case '{':
			l.add(LBRACE, "{")
		case '}':
			l.add(RBRACE, "}")
		case ',':
			l.add(COMMA, ",")
		case ':':
			l.add(COLON, ":")
		case '+':
			l.add(PLUS, "+")
		case '*':
			l.add(STAR, "*")
		case '/':
			l.add(SLASH, "/")
		case '-':
			l.twoChar('>', ARROW, "->", MINUS, "-")
		case '=':
			if b, ok := l.peek(); ok && b == '>' {
				l.advance()
				l.add(FATARROW, "=>")
			} else {
				l.twoChar('=', EQ, "==", EQUALS, "=")
			}
		case '!':
			l.twoChar('=', NEQ, "!=", BANG, "!")
		case '<':
			l.twoChar('=', LESS_EQ, "<=", LESS, "<")
		case '>':
			l.twoChar('=', GREATER_EQ, ">=", GREATER, ">")
		case '|':
			l.twoChar('|', OR_OR, "||", PIPE, "|")
		case '&':
			if b, ok := l.peek(); ok && b == '&' {
				l.advance()
				l.add(AND_AND, "&&")
			} else {
				return nil, l.err("unexpected character '&'")
			}
		case '"':
			if err := l.scanString(); err != nil {
				return nil, err
			}
		default:
			if isDigit(ch) {
				l.scanNumber(ch)
				break
			}
			if isAlpha(ch) {
				l.scanIdentifier(ch)
				break
			}
			return nil, l.err(fmt.Sprintf("unexpected character %q", ch))
		}
	}
}
