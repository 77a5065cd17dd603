package constprop

import (
	"errors"
	"fmt"

	"github.com/chazu/linkopt/classfile"
)

var (
	// ErrUnsupported is wrapped by errors for instructions or literals the
	// interpreter cannot model.
	ErrUnsupported = errors.New("unsupported")

	// ErrNotFound is returned when a class or method is missing from the pool.
	ErrNotFound = errors.New("not found")
)

// AnalyzerError reports a failure while analyzing one method.
type AnalyzerError struct {
	Owner  string
	Method string // name + descriptor
	Insn   int    // instruction index, -1 if not tied to an instruction
	Err    error
}

func (e *AnalyzerError) Error() string {
	if e.Insn >= 0 {
		return fmt.Sprintf("analyze %s.%s: instruction %d: %v", e.Owner, e.Method, e.Insn, e.Err)
	}
	return fmt.Sprintf("analyze %s.%s: %v", e.Owner, e.Method, e.Err)
}

func (e *AnalyzerError) Unwrap() error {
	return e.Err
}

// ConfigError reports a target declaration that cannot be resolved.
type ConfigError struct {
	Owner  string
	Method string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("target %s: %s", classfile.MethodRef(e.Owner, e.Method, ""), e.Msg)
	}
	return fmt.Sprintf("target %s: %s", e.Owner, e.Msg)
}
