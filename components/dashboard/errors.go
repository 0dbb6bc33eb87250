package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

var (
	// ErrEmptyQuery is returned when a query is blank.
	ErrEmptyQuery = errors.New("dashboard: query is required")
	// ErrStaleResponse marks a response superseded by a newer submission.
	ErrStaleResponse = errors.New("dashboard: response superseded by a newer query")
	// ErrNoSpecification is returned when a session has nothing loaded yet.
	ErrNoSpecification = errors.New("dashboard: no specification loaded")
	// ErrTableNotFound is returned for unknown table ids.
	ErrTableNotFound = errors.New("dashboard: table not found")
	// ErrChartNotFound is returned for unknown chart ids.
	ErrChartNotFound = errors.New("dashboard: chart not found")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("dashboard: session not found")
)

// ErrorKind classifies failures surfaced to users.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindServer     ErrorKind = "server"
	KindUpload     ErrorKind = "upload"
	KindRequest    ErrorKind = "request"
)

// QueryError is a classified, user-presentable failure.
type QueryError struct {
	Kind   ErrorKind `json:"kind"`
	Title  string    `json:"title"`
	Detail string    `json:"detail"`
	Status int       `json:"status,omitempty"`
	Err    error     `json:"-"`
}

func (e *QueryError) Error() string {
	if e.Detail == "" {
		return e.Title
	}
	return e.Title + ": " + e.Detail
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status.
func (e *QueryError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork:
		return http.StatusBadGateway
	case KindServer:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadGateway
	case KindUpload:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Severity maps the error kind to a notification severity.
func (e *QueryError) Severity() Severity {
	if e.Kind == KindValidation {
		return SeverityWarning
	}
	return SeverityError
}

// Notification converts the error into a toast payload.
func (e *QueryError) Notification() Notification {
	return Notification{Title: e.Title, Description: e.Detail, Severity: e.Severity()}
}

// ValidationError builds a validation failure.
func ValidationError(title, detail string, err error) *QueryError {
	return &QueryError{Kind: KindValidation, Title: title, Detail: detail, Err: err}
}

// ServerError wraps a non-2xx response; detail is shown verbatim.
func ServerError(status int, detail string) *QueryError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &QueryError{Kind: KindServer, Title: "Server Error", Detail: detail, Status: status}
}

// UploadError records a per-file upload failure.
func UploadError(filename string, err error) *QueryError {
	detail := ""
	if err != nil {
		detail = err.Error()
		var qe *QueryError
		if errors.As(err, &qe) {
			detail = qe.Detail
		}
	}
	return &QueryError{Kind: KindUpload, Title: "Upload Failed", Detail: filename + ": " + detail, Err: err}
}

// Classify turns any error into a QueryError.
func Classify(err error) *QueryError {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	if errors.Is(err, ErrEmptyQuery) {
		return ValidationError("Query Required", "Please enter a query to generate your dashboard.", err)
	}
	if isTimeout(err) {
		return &QueryError{
			Kind:   KindTimeout,
			Title:  "Request Timeout",
			Detail: "The request took too long to complete. Please try again.",
			Err:    err,
		}
	}
	if isConnectionFailure(err) {
		return &QueryError{
			Kind:   KindNetwork,
			Title:  "Connection Error",
			Detail: "Unable to connect to the server. Please check if the backend is running.",
			Err:    err,
		}
	}
	return &QueryError{Kind: KindRequest, Title: "Request Failed", Detail: err.Error(), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
