package httpapi

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-querydash/components/dashboard"
)

// ErrorBody is the JSON error envelope returned by both transports.
type ErrorBody struct {
	Error  string                `json:"error"`
	Detail *dashboard.QueryError `json:"detail,omitempty"`
}

// StatusFor maps a service error to a response status and body.
func StatusFor(err error) (int, ErrorBody) {
	switch {
	case errors.Is(err, dashboard.ErrSessionNotFound),
		errors.Is(err, dashboard.ErrTableNotFound),
		errors.Is(err, dashboard.ErrChartNotFound):
		return http.StatusNotFound, ErrorBody{Error: err.Error()}
	case errors.Is(err, dashboard.ErrNoSpecification),
		errors.Is(err, dashboard.ErrStaleResponse):
		return http.StatusConflict, ErrorBody{Error: err.Error()}
	case errors.Is(err, errCommandNotConfigured):
		return http.StatusNotImplemented, ErrorBody{Error: err.Error()}
	}
	qe := dashboard.Classify(err)
	return qe.HTTPStatus(), ErrorBody{Error: qe.Title, Detail: qe}
}
