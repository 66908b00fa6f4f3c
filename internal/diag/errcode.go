package diag

import (
	"context"
	"errors"
	"net"
	"os"
)

// Code is a coarse error class used for events and metrics. It is not an
// exit code.
type Code string

const (
	CodeUnknown    Code = "unknown"
	CodeValidation Code = "validation"
	CodeSchema     Code = "schema"
	CodeExternal   Code = "external"
	CodeParse      Code = "parse"
	CodeIO         Code = "io"
	CodeNetwork    Code = "network"
	CodeCancel     Code = "cancel"
)

// Coded is implemented by error types that know their class.
type Coded interface {
	DiagCode() Code
}

// Classify maps err onto a Code without string matching.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var c Coded
	if errors.As(err, &c) {
		return c.DiagCode()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}
