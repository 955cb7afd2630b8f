package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const (
	CodeValidation  = "validation"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// Error is the body of every failed response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(code, param, message string) *Error {
	return &Error{Code: code, Message: message, Param: param, Status: statusForCode(code)}
}

func validationError(param, message string) *Error {
	return newError(CodeValidation, param, message)
}

// toError maps domain errors onto the response envelope.
func toError(err error) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, royalty.ErrInvalidParameter):
		return newError(CodeValidation, strings.Join(royalty.InvalidParams(err), ","), err.Error())
	case errors.Is(err, marketdata.ErrDataUnavailable), errors.Is(err, report.ErrPDFUnavailable):
		return newError(CodeUnavailable, "", err.Error())
	default:
		return newError(CodeInternal, "", err.Error())
	}
}

func writeError(w http.ResponseWriter, err error) {
	e := toError(err)
	writeJSON(w, e.Status, map[string]any{"ok": false, "error": e})
}
