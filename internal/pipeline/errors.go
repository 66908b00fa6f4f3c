package pipeline

import (
	"fmt"

	"pagetransform/internal/diag"
)

// ValidationError reports a page that is not eligible for transformation.
// It is always raised before the sink is written to.
type ValidationError struct {
	Page   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Page == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("page %s: validation failed: %s", e.Page, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) DiagCode() diag.Code { return diag.CodeValidation }

// ExternalServiceError wraps a failed call to the sink or another external
// service. Op names the call.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) DiagCode() diag.Code { return diag.CodeExternal }

// panicError carries a recovered panic. It is deliberately unclassified.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
