// Command pagetransform converts exported legacy pages into modern pages.
//
// Usage:
//
//	pagetransform transform --input-dir exports --source-web https://contoso/sites/a --target-web https://contoso/sites/b
//	pagetransform analyze < page.json
//	pagetransform validate-mapping mapping.xml
//
// Configuration is read from --config, or pagetransform.{yaml,json} in
// ./configs or the working directory. Every key can be overridden with a
// PAGETRANSFORM_ environment variable (PAGETRANSFORM_SINK_KIND=sqlite).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error { return &exitError{code: 2, err: err} }

// run is the testable entrypoint of the binary.
//
// Exit codes:
//   - 0 on success
//   - 1 on operational errors, or when any page was not transformed
//   - 2 on invalid usage or an invalid mapping model
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, httpClient *http.Client) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, httpClient: httpClient}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, http.DefaultClient)
	stop()
	os.Exit(code)
}
