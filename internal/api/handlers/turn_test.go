package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jsalazar/toolforge/internal/domain/dataset"
	"github.com/jsalazar/toolforge/internal/domain/dispatch"
)

type stubRunner struct {
	ex  dataset.Example
	err error
}

func (s *stubRunner) Run(context.Context, string) (dataset.Example, error) {
	return s.ex, s.err
}

func TestTurnCreate_Success(t *testing.T) {
	t.Parallel()

	ex, err := dataset.Assemble("what is 2+2*3?", "It is 8.", nil, nil, time.Now())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	h := NewTurnHandler(&stubRunner{ex: ex})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns",
		bytes.NewBufferString(`{"message":"what is 2+2*3?"}`))
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AssistantMessage string `json:"assistant_message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AssistantMessage != "It is 8." {
		t.Fatalf("assistant message = %q", resp.AssistantMessage)
	}
}

func TestTurnCreate_EmptyMessage(t *testing.T) {
	t.Parallel()

	h := NewTurnHandler(&stubRunner{})
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turns",
		bytes.NewBufferString(`{"message":""}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTurnCreate_BudgetExceeded(t *testing.T) {
	t.Parallel()

	h := NewTurnHandler(&stubRunner{err: fmt.Errorf("turn x: %w", dispatch.ErrBudgetExceeded)})
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turns",
		bytes.NewBufferString(`{"message":"do everything"}`)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestTurnCreate_ProviderFailure(t *testing.T) {
	t.Parallel()

	h := NewTurnHandler(&stubRunner{err: fmt.Errorf("chat completion: connection refused")})
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turns",
		bytes.NewBufferString(`{"message":"hi"}`)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
