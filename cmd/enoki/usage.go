package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  enoki run [target]")
	fmt.Fprintln(os.Stderr, "  enoki run <file.enoki>")
	fmt.Fprintln(os.Stderr, "  enoki <file.enoki>")
	fmt.Fprintln(os.Stderr, "  enoki repl")
	fmt.Fprintln(os.Stderr, "  enoki deps install")
	fmt.Fprintln(os.Stderr, "  enoki deps update [dependency ...]")
	fmt.Fprintln(os.Stderr, "  enoki --version")
}
