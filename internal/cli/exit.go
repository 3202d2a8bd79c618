package cli

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagshot/pkg/errors"
)

// Exit statuses shared by the render commands.
const (
	exitOK          = 0
	exitUsage       = 1
	exitContent     = 2
	exitUnhandled   = 3
	exitInterrupted = 130
)

// exitError carries the process exit status of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// withExit attaches an exit status to err. A nil err stays nil.
func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode returns the exit status for an error returned by a command.
// Errors without an attached status exit 1, or 130 after an interrupt.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	if stderrors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return exitUsage
}

// flagErrorCode is the status for unparsable flags and arguments: 2 for the
// broker, where every start-up problem is 2, and 1 elsewhere.
func flagErrorCode(cmd *cobra.Command) int {
	if cmd != nil && cmd.Name() == "broker" {
		return 2
	}
	return exitUsage
}

// svg2pngExit maps rasterization errors to statuses: 1 for options, 2 for
// unusable input and 3 for everything else.
func svg2pngExit(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.IsConfiguration(err):
		return withExit(exitUsage, err)
	case errors.Is(err, errors.ErrCodeEmptyInput),
		errors.Is(err, errors.ErrCodeInvalidSize),
		errors.Is(err, errors.ErrCodeMissingSVG):
		return withExit(exitContent, err)
	}
	return withExit(exitUnhandled, err)
}

// diagramExit maps diagram errors to statuses: 1 for options, 2 for a
// missing Mermaid bundle and 3 for everything else.
func diagramExit(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.IsConfiguration(err):
		return withExit(exitUsage, err)
	case errors.Is(err, errors.ErrCodeBundleNotFound):
		return withExit(exitContent, err)
	}
	return withExit(exitUnhandled, err)
}
