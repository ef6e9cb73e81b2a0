package tool

import "fmt"

// SpecError reports a structurally invalid tool specification.
type SpecError struct {
	Tool   string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("invalid tool spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid spec for tool %q: %s", e.Tool, e.Reason)
}

// ValidationError reports arguments that violate a tool's parameter
// contract. It is raised before the tool function runs and is never
// retried.
type ValidationError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("tool %q: invalid arguments: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tool %q: parameter %q: %s", e.Tool, e.Param, e.Reason)
}

// NotFoundError reports a lookup for a tool the registry does not hold.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not registered", e.Tool)
}

// DuplicateError reports a second registration under an already-taken name.
type DuplicateError struct {
	Tool string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Tool)
}

// OperationError wraps a failure raised by the tool function itself, after
// validation passed. Operation errors are eligible for retry.
type OperationError struct {
	Tool string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// TimeoutError reports an invocation that exceeded its deadline. The
// elapsed time covers the attempt that timed out, not the whole pipeline.
type TimeoutError struct {
	Tool    string
	Elapsed string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %q timed out after %s", e.Tool, e.Elapsed)
}
