package royalty

import (
	"errors"
	"fmt"
)

var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError names the offending input. It unwraps to ErrInvalidParameter.
type ParamError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

func invalid(param string, value any, reason string) error {
	return &ParamError{Param: param, Value: value, Reason: reason}
}

// InvalidParams lists every parameter named by err, in order.
func InvalidParams(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		switch v := e.(type) {
		case nil:
		case *ParamError:
			out = append(out, v.Param)
		case interface{ Unwrap() []error }:
			for _, inner := range v.Unwrap() {
				walk(inner)
			}
		default:
			var pe *ParamError
			if errors.As(e, &pe) {
				out = append(out, pe.Param)
			}
		}
	}
	walk(err)
	return out
}
