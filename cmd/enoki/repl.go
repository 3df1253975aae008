package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/interpreter"
	"enoki/interpreter-go/pkg/parser"
	"enoki/interpreter-go/pkg/runtime"
)

const (
	replHistoryFile = ".enoki_history"
	replPromptMain  = "enoki> "
	replPromptCont  = ".....> "
)

var (
	replBanner = fmt.Sprintf("Enoki REPL (%s)\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", cliToolVersion)
	helpText   = `
REPL commands:
  :help          Show this help
  :env           List defined names and their values
  :tree <expr>   Evaluate an expression and render the value as a tree
  :load <file>   Evaluate a source file in the current session
  :quit          Exit the REPL
`
)

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "enoki repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}

	fmt.Println(replBanner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, replHistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	interp := interpreter.New()

	for {
		code, ok := readByParseProbe(ln, replPromptMain, replPromptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			if quit := runReplCommand(interp, trimmed); quit {
				return 0
			}
			ln.AppendHistory(trimmed)
			continue
		}

		module, err := parser.Parse(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			continue
		}
		last, evalErr := evalReplStatements(interp, module)
		if evalErr != nil {
			fmt.Fprintln(os.Stderr, evalErr.Error())
			continue
		}
		if _, unit := last.(runtime.UnitValue); !unit {
			fmt.Println(runtime.Render(last))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByParseProbe accumulates prompt lines until the buffer parses or the
// failure is not an out-of-input one. The second result is false only on EOF.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		// REPL commands are always one line; never probe them for more.
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := parser.Parse(src); perr == nil {
			return src, true
		} else if parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

func evalReplStatements(interp *interpreter.Interpreter, module *ast.Module) (runtime.Value, error) {
	var last runtime.Value = runtime.UnitValue{}
	for _, stmt := range module.Body {
		value, err := interp.EvaluateStatement(stmt, nil)
		if err != nil {
			return nil, err
		}
		last = value
	}
	return last, nil
}

// runReplCommand handles ':' commands; the returned flag asks the loop to exit.
func runReplCommand(interp *interpreter.Interpreter, command string) bool {
	name, rest, _ := strings.Cut(command, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":env":
		env := interp.GlobalEnvironment()
		for _, key := range env.Keys() {
			value, err := env.Get(key)
			if err != nil {
				continue
			}
			fmt.Printf("%s = %s\n", key, runtime.Render(value))
		}
	case ":tree":
		if rest == "" {
			fmt.Fprintln(os.Stderr, "usage: :tree <expr>")
			return false
		}
		module, err := parser.Parse(rest)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return false
		}
		value, evalErr := evalReplStatements(interp, module)
		if evalErr != nil {
			fmt.Fprintln(os.Stderr, evalErr.Error())
			return false
		}
		fmt.Println(runtime.RenderTree(value))
	case ":load":
		if rest == "" {
			fmt.Fprintln(os.Stderr, "usage: :load <file>")
			return false
		}
		if err := replLoadFile(interp, rest); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	default:
		fmt.Printf("unknown command %s. Type :help for commands.\n", name)
	}
	return false
}

func replLoadFile(interp *interpreter.Interpreter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	module, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, _, err := interp.EvaluateModule(module); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("loaded %s\n", path)
	return nil
}
