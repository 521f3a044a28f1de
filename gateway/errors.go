package gateway

import (
	"fmt"
	"strings"
)

// ValidationError rejects a request before any process is spawned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProviderUnavailableError is returned when the requested provider's
// binary cannot be resolved.
type ProviderUnavailableError struct {
	Provider string
	Reason   string
}

func (e *ProviderUnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("provider %s is not available", e.Provider)
	}
	return fmt.Sprintf("provider %s is not available: %s", e.Provider, e.Reason)
}

// SpawnError is reported in-band when the CLI could not be started.
type SpawnError struct {
	Provider string
	Binary   string
	Cause    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s (%s): %v", e.Provider, e.Binary, e.Cause)
}

func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// RuntimeError describes a CLI that exited with a non-zero status.
type RuntimeError struct {
	Provider string
	ExitCode int
	Stderr   string
}

func (e *RuntimeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Provider, e.ExitCode, e.Stderr)
	}
	return e.genericMessage()
}

// Message is the text sent to the client: the CLI's own stderr when there
// is any.
func (e *RuntimeError) Message() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return e.genericMessage()
}

func (e *RuntimeError) genericMessage() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s was terminated by a signal", e.Provider)
	}
	return fmt.Sprintf("%s exited with code %d", e.Provider, e.ExitCode)
}

func silentSuccessMessage(provider string) string {
	return fmt.Sprintf("%s exited successfully but produced no output; if resuming a session, the session id may be invalid or expired", provider)
}
