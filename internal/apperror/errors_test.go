package apperror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestToResponseStatusTable(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized(""), http.StatusUnauthorized},
		{Forbidden(""), http.StatusForbidden},
		{NotFound(""), http.StatusNotFound},
		{Conflict("duplicate purchase"), http.StatusConflict},
		{Internal(""), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		status, body := ToResponse(tc.err)
		if status != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.err.Kind, tc.status, status)
		}
		if body.Success {
			t.Fatalf("%s: success must be false", tc.err.Kind)
		}
		if body.Error.Message == "" {
			t.Fatalf("%s: empty message", tc.err.Kind)
		}
	}
}

func TestToResponseKeepsMessageAndCode(t *testing.T) {
	status, body := ToResponse(Conflict("Template already purchased").WithCode("DUPLICATE_PURCHASE"))
	if status != http.StatusConflict {
		t.Fatalf("unexpected status %d", status)
	}
	if body.Error.Message != "Template already purchased" || body.Error.Code != "DUPLICATE_PURCHASE" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestToResponseUnknownErrorIsGeneric(t *testing.T) {
	raw := errors.New("pq: relation \"users\" does not exist\ngoroutine 1 [running]:\nmain.main()")
	status, body := ToResponse(fmt.Errorf("query users: %w", raw))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	encoded, _ := json.Marshal(body)
	for _, leak := range []string{"pq:", "goroutine", "relation", "main.main"} {
		if strings.Contains(string(encoded), leak) {
			t.Fatalf("body leaks %q: %s", leak, encoded)
		}
	}
	if body.Error.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
}

func TestToResponseInternalHidesMessage(t *testing.T) {
	_, body := ToResponse(Internal("dial tcp 10.0.0.3:5432: connection refused"))
	if strings.Contains(body.Error.Message, "10.0.0.3") {
		t.Fatalf("internal message leaked: %q", body.Error.Message)
	}
}

func TestToResponseWrappedTaxonomyError(t *testing.T) {
	err := fmt.Errorf("load document: %w", NotFound("Document not found").Wrap(errors.New("record not found")))
	status, body := ToResponse(err)
	if status != http.StatusNotFound || body.Error.Message != "Document not found" {
		t.Fatalf("unexpected response %d %+v", status, body)
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(fmt.Errorf("x: %w", Forbidden("")), KindForbidden) {
		t.Fatalf("expected forbidden")
	}
	if IsKind(errors.New("plain"), KindInternal) {
		t.Fatalf("plain errors are not taxonomy errors")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.Log(context.Background(), Forbidden("nope"), LogContext{Method: "GET", Route: "/api/admin/users"})
	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), `"kind":"Forbidden"`) {
		t.Fatalf("unexpected operational log: %s", buf.String())
	}
	if strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("operational errors must not carry a stack trace")
	}

	buf.Reset()
	l.Log(context.Background(), errors.New("boom"), LogContext{Method: "POST", Route: "/api/me"})
	if !strings.Contains(buf.String(), `"level":"ERROR"`) || !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("unexpected internal log: %s", buf.String())
	}
}

type panicHandler struct{ slog.Handler }

func (panicHandler) Handle(context.Context, slog.Record) error { panic("sink down") }

func TestLoggerFailureDoesNotPropagate(t *testing.T) {
	l := NewLogger(slog.New(panicHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)}))
	l.Log(context.Background(), errors.New("boom"), LogContext{})
}
