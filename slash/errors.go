// Package slash layers declarative slash-command support on top of a
// discordgo session: command declaration, registration sync against the
// Discord API, interaction dispatch, and the response/followup flow.
package slash

import "fmt"

// ValidationError reports an invalid declaration (bad option, missing
// description, nil handler) or a response-contract violation. These are
// programmer errors and surface synchronously.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// CommandNotFoundError reports an inbound interaction that could not be
// matched to any registered command or component callback.
type CommandNotFoundError struct {
	Name string
	ID   string
}

func (e *CommandNotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("no command %q found by ID %s or by name", e.Name, e.ID)
	}
	return fmt.Sprintf("no command found matching %q", e.Name)
}

// CheckFailureError reports a check chain that vetoed an invocation.
type CheckFailureError struct {
	Command string
}

func (e *CheckFailureError) Error() string {
	return fmt.Sprintf("the check functions for %s failed", e.Command)
}

// CommandInvokeError wraps an error raised by a command handler or a parent
// hook during invocation.
type CommandInvokeError struct {
	Command string
	Err     error
}

func (e *CommandInvokeError) Error() string {
	return fmt.Sprintf("command %s raised an error: %v", e.Command, e.Err)
}

func (e *CommandInvokeError) Unwrap() error { return e.Err }
