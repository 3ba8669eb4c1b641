package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"hullbridge/core"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and maps the result to an exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return core.ExitCodeSuccess
	}

	code := exitCodeFor(err)
	var quiet *exitError
	if !errors.As(err, &quiet) || !quiet.silent {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// exitError carries an exit code through cobra's error return. silent
// errors were already reported to the user.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return core.ExitCodeName(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: core.ExitCodeUsage, err: err}
}

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if _, ok := core.IsConfigError(err); ok {
		return core.ExitCodeUsage
	}
	return core.ExitCodeError
}
