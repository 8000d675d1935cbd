package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and executes the selected command, returning the process
// exit status.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	global := &Global{CLI: &cli, Stdout: stdout, Stderr: stderr}

	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("freeze"),
		kong.Description("Publish Markdown posts and templates as a relocatable static site."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
		kong.Bind(global),
		kong.UsageOnError(),
	)
	if err != nil {
		writeLine(stderr, "freeze: %v", err)
		return 2
	}

	ctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		writeLine(stderr, "freeze: %v", err)
		return 2
	}
	if err := ctx.Run(); err != nil {
		writeLine(stderr, "freeze: %v", err)
		return 1
	}
	return 0
}
