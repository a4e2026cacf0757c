package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrExternal      = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MarkerForStatus maps an HTTP status code returned by a remote service to the
// error marker that best describes it.
func MarkerForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrConfiguration
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusRequestEntityTooLarge || code == http.StatusUnprocessableEntity || code == http.StatusBadRequest:
		return ErrValidation
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return ErrExternal
	}
}

// Hint returns a short operator-facing suggestion for a classified error.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check api credentials and permissions"
	case errors.Is(err, ErrValidation):
		return "check the record data and file sizes"
	case errors.Is(err, ErrNotFound):
		return "check table names and file paths"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return "remote service unavailable; rerun to resume from the checkpoint"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
