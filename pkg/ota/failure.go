package ota

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure is a typed stage failure carrying what the platform is told. Stages
// return it to short circuit the rest of an upgrade attempt.
type Failure struct {
	Code        Code
	Progress    int
	Description string

	cause error
}

// Fail creates a Failure with progress 0.
func Fail(code Code, format string, args ...interface{}) *Failure {
	return &Failure{Code: code, Description: fmt.Sprintf(format, args...)}
}

// FailWith creates a Failure for code caused by err. The description is the
// error's message.
func FailWith(code Code, err error) *Failure {
	return &Failure{Code: code, Description: err.Error(), cause: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s (%d): %s", f.Code, int(f.Code), f.Description)
}

// Cause returns the underlying error, when there is one.
func (f *Failure) Cause() error {
	return f.cause
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// AsFailure finds a Failure in err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
