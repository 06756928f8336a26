package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
)

// ErrBusy is returned when a generation is requested while another one is
// still running.
var ErrBusy = errors.New("a credential generation is already running")

// InvalidInputError rejects a request before any rendering happens: an empty
// batch, a record missing a required field, or a repeated employee id.
type InvalidInputError struct {
	Reason string
	Index  int // position in the batch, -1 when not tied to one record
	Fields []employees.FieldError
}

func (e *InvalidInputError) Error() string {
	msg := "invalid input: " + e.Reason
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (employee #%d)", e.Index+1)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

// IOError reports a failure handing a finished artifact to its destination.
// The artifact itself is unaffected.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeEncoding     Code = "encoding"
	CodeComposition  Code = "composition"
	CodeInvalidInput Code = "invalid_input"
	CodeIO           Code = "io"
	CodeCancel       Code = "cancel"
	CodeBusy         Code = "busy"
)

func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var (
		encErr  *imagepkg.EncodingError
		compErr *imagepkg.CompositionError
		inErr   *InvalidInputError
		ioErr   *IOError
	)
	switch {
	case errors.Is(err, ErrBusy):
		return CodeBusy
	case errors.As(err, &inErr):
		return CodeInvalidInput
	case errors.As(err, &encErr):
		return CodeEncoding
	// A photo timeout is a composition failure, so this precedes the
	// context checks.
	case errors.As(err, &compErr):
		return CodeComposition
	case errors.As(err, &ioErr):
		return CodeIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	default:
		return CodeUnknown
	}
}

// UserMessage turns err into the text shown next to the progress indicator.
func UserMessage(err error) string {
	switch Classify(err) {
	case CodeBusy:
		return "A credential generation is already in progress."
	case CodeInvalidInput:
		return "Some employee data is incomplete: " + err.Error()
	case CodeEncoding:
		return "The national ID cannot be encoded as a barcode: " + err.Error()
	case CodeComposition:
		return "The credential could not be drawn: " + err.Error()
	case CodeIO:
		return "The credential was generated but could not be downloaded."
	case CodeCancel:
		return "Credential generation was cancelled."
	default:
		return "Error generating credentials."
	}
}
