package errs

import (
	"fmt"
	"strings"
)

// Values is the type used to specify arguments for a curated error's
// message template.
type Values []interface{}

// curated errors let code raise a predefined category of error without
// worrying too much about how the message is worded or formatted on
// output.
type curated struct {
	code    Code
	message string
	values  Values
}

// New creates a curated error carrying code, formatted with message and
// values the way fmt.Errorf formats its arguments.
func New(code Code, message string, values ...interface{}) error {
	return curated{code: code, message: message, values: values}
}

// Errorf creates a curated error with no specific category beyond the
// message itself. Used for internal plumbing errors that don't need to be
// distinguished by callers via Code.
func Errorf(message string, values ...interface{}) error {
	return curated{code: -1, message: message, values: values}
}

// Error returns the normalised error message: normalisation being the
// removal of duplicate adjacent message parts that occur when one curated
// error wraps another with the same leading text.
//
// Implements the error interface.
func (e curated) Error() string {
	s := fmt.Errorf(e.message, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// Head returns the leading part of the message. Similar to Is but returns
// the string rather than a boolean, useful for switches.
//
// If err is not a curated error, Error() is returned instead.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.message
	}
	return err.Error()
}

// CodeOf returns the category of err and whether err is a curated error
// carrying one (plumbing errors created with Errorf have no category).
func CodeOf(err error) (Code, bool) {
	e, ok := err.(curated)
	if !ok || e.code < 0 {
		return 0, false
	}
	return e.code, true
}

// IsAny reports whether err is a curated error.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error whose category is code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	if !ok {
		return false
	}
	return e.code == code
}

// Has reports whether code appears anywhere in err's causal chain of
// curated errors.
func Has(err error, code Code) bool {
	if err == nil {
		return false
	}
	if !IsAny(err) {
		return false
	}
	if Is(err, code) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, code) {
				return true
			}
		}
	}
	return false
}
