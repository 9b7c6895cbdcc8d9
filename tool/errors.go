package tool

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when a name does not refer to an installed tool.
type ErrToolNotFound struct {
	Name string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("tool: not found: %s", e.Name)
}

// ErrToolExists is returned when installing a tool whose file already exists.
type ErrToolExists struct {
	Name string
}

// Error returns a formatted error message including the duplicate tool name.
func (e *ErrToolExists) Error() string {
	return fmt.Sprintf("tool: already installed: %s", e.Name)
}

// ErrToolExecution wraps errors raised while a tool runs.
type ErrToolExecution struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrToolExecution) Error() string {
	return fmt.Sprintf("tool: %s execution failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ErrToolExecution) Unwrap() error {
	return e.Err
}

// ErrReservedName is returned for tool names the registry keeps for itself.
var ErrReservedName = errors.New("tool: names starting with an underscore are reserved")

// IsNotFound reports whether err is an ErrToolNotFound.
func IsNotFound(err error) bool {
	var nf *ErrToolNotFound
	return errors.As(err, &nf)
}

// IsExists reports whether err is an ErrToolExists.
func IsExists(err error) bool {
	var ex *ErrToolExists
	return errors.As(err, &ex)
}
