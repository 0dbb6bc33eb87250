package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   ErrorKind
		title  string
		status int
	}{
		{"empty", ErrEmptyQuery, KindValidation, "Query Required", http.StatusBadRequest},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout, "Request Timeout", http.StatusGatewayTimeout},
		{"refused", &url.Error{Op: "Post", URL: "http://x", Err: syscall.ECONNREFUSED}, KindNetwork, "Connection Error", http.StatusBadGateway},
		{"dns", &net.DNSError{Err: "no such host", Name: "backend"}, KindNetwork, "Connection Error", http.StatusBadGateway},
		{"server", ServerError(503, ""), KindServer, "Server Error", http.StatusBadGateway},
		{"client", ServerError(404, "dataset not found"), KindServer, "Server Error", http.StatusNotFound},
		{"other", errors.New("boom"), KindRequest, "Request Failed", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		qe := Classify(tc.err)
		assert.Equal(t, tc.kind, qe.Kind, tc.name)
		assert.Equal(t, tc.title, qe.Title, tc.name)
		assert.Equal(t, tc.status, qe.HTTPStatus(), tc.name)
	}
	assert.Nil(t, Classify(nil))
}

func TestQueryErrorUnwrapAndNotification(t *testing.T) {
	qe := Classify(fmt.Errorf("wrapped: %w", ErrEmptyQuery))
	assert.ErrorIs(t, qe, ErrEmptyQuery)
	note := qe.Notification()
	assert.Equal(t, SeverityWarning, note.Severity)
	assert.Equal(t, "Please enter a query to generate your dashboard.", note.Description)

	server := ServerError(502, "")
	assert.Equal(t, "Bad Gateway", server.Detail)
	assert.Equal(t, SeverityError, server.Severity())

	upload := UploadError("a.csv", ServerError(400, "bad header"))
	assert.Equal(t, KindUpload, upload.Kind)
	assert.Equal(t, "a.csv: bad header", upload.Detail)
	assert.Equal(t, http.StatusUnprocessableEntity, upload.HTTPStatus())
}

func TestLogNotifierAndMultiNotifier(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	recorder := &recordingNotifier{}
	notifier := MultiNotifier{LogNotifier{Logger: logger}, nil, recorder}

	notifier.Notify(context.Background(), Notification{Title: "Connection Error", Severity: SeverityError})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "Connection Error")
	assert.Equal(t, []string{"Connection Error"}, recorder.titles())
}
