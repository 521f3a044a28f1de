package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a provider binary cannot be located.
var ErrNotFound = errors.New("binary not found")

// ErrUnknownProvider is returned for names absent from the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// InvalidToolNameError lists allowed tool names that failed validation.
type InvalidToolNameError struct {
	Names []string
}

func (e *InvalidToolNameError) Error() string {
	return fmt.Sprintf("invalid tool name(s): %s", strings.Join(e.Names, ", "))
}
