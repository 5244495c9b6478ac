// Package validate collects field validation problems into one error.
package validate

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// Errors accumulates validation failures. The zero value is ready to use.
type Errors struct {
	err *multierror.Error
}

// Check records msg when ok is false.
func (e *Errors) Check(ok bool, format string, args ...any) {
	if !ok {
		e.Add(format, args...)
	}
}

// Add records a failure. Every recorded failure wraps ErrInvalidData.
func (e *Errors) Add(format string, args ...any) {
	e.err = multierror.Append(e.err, fmt.Errorf("%w: "+format, append([]any{types.ErrInvalidData}, args...)...))
}

// Err returns nil when nothing was recorded. The message lists every
// failure separated by semicolons.
func (e *Errors) Err() error {
	if e.err == nil {
		return nil
	}
	e.err.ErrorFormat = format
	return e.err.ErrorOrNil()
}

func format(es []error) string {
	msgs := make([]string, len(es))
	prefix := types.ErrInvalidData.Error() + ": "
	for i, err := range es {
		msgs[i] = strings.TrimPrefix(err.Error(), prefix)
	}
	return strings.Join(msgs, "; ")
}
