package parser

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LPAREN   // "("
	RPAREN   // ")"
	LBRACE   // "{"
	RBRACE   // "}"
	COMMA    // ","
	COLON    // ":"
	EQUALS   // "="
	PIPE     // "|"
	ARROW    // "->"
	FATARROW // "=>"

	// Operators
	PLUS       // "+"
	MINUS      // "-"
	STAR       // "*"
	SLASH      // "/"
	EQ         // "=="
	NEQ        // "!="
	LESS       // "<"
	LESS_EQ    // "<="
	GREATER    // ">"
	GREATER_EQ // ">="
	AND_AND    // "&&"
	OR_OR      // "||"
	BANG       // "!"

	// Literals and identifiers
	IDENT
	INT
	STRING

	// Keywords
	TYPE
	FN
	MATCH
	IF
	ELSE
	LET
	IN
	TRUE
	FALSE
)

var keywords = map[string]TokenType{
	"type":  TYPE,
	"fn":    FN,
	"match": MATCH,
	"if":    IF,
	"else":  ELSE,
	"let":   LET,
	"in":    IN,
	"true":  TRUE,
	"false": FALSE,
}

// Token is a lexical token. Line and Col are 1-based; Text holds the
// canonical operator text, the identifier or keyword, the digit run for
// INT, or the decoded value for STRING.
type Token struct {
	Type TokenType
	Text string
	Line int
	Col  int
}

func (t Token) describe() string {
	if t.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", t.Text)
}
