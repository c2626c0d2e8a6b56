// Package validate holds the single error type used for out-of-domain input.
//
// Every rejected argument (rows outside [8,16], a bucket outside [0,rows], a
// negative or non-finite amount) is reported as an *Error wrapping
// ErrInvalid, so callers can test with errors.Is(err, validate.ErrInvalid)
// and still get a message naming the offending field.
package validate

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is wrapped by every *Error.
var ErrInvalid = errors.New("invalid input")

// Error reports which field was rejected and why.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Field + " " + e.Reason
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Fieldf builds an *Error for field with a formatted reason.
func Fieldf(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Field returns the rejected field name when err is an *Error.
func Field(err error) (string, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Field, true
	}
	return "", false
}

// Finite rejects NaN and ±Inf.
func Finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Fieldf(field, "must be a finite number, got %v", v)
	}
	return nil
}

// NonNegative rejects non-finite and negative values.
func NonNegative(field string, v float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return Fieldf(field, "must be >= 0, got %v", v)
	}
	return nil
}

// Positive rejects non-finite values and values <= 0.
func Positive(field string, v float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return Fieldf(field, "must be > 0, got %v", v)
	}
	return nil
}
