package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

func newClient(t *testing.T, handler http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_Form(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/forms/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		if r.PathValue("id") != "contact" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(model.FormDefinition{ID: "contact", Name: "Contact"})
	})
	c := newClient(t, mux)

	var wg sync.WaitGroup
	results := make([]model.FormDefinition, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			form, err := c.Form(context.Background(), "contact")
			if err != nil {
				t.Errorf("form: %v", err)
			}
			results[i] = form
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, form := range results {
		if form.Name != "Contact" {
			t.Fatalf("unexpected form %+v", form)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected concurrent fetches to share one request, got %d", got)
	}

	if _, err := c.Form(context.Background(), "missing"); !errors.Is(err, embed.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestClient_CheckDomainVerification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/forms/{id}/verify-domain", func(w http.ResponseWriter, r *http.Request) {
		verified := r.URL.Query().Get("domain") == "example.com"
		_ = json.NewEncoder(w).Encode(map[string]any{"verified": verified})
	})
	c := newClient(t, mux)

	ok, err := c.CheckDomainVerification(context.Background(), "contact", "example.com")
	if err != nil || !ok {
		t.Fatalf("expected verified, got %v %v", ok, err)
	}
	ok, err = c.CheckDomainVerification(context.Background(), "contact", "evil.test")
	if err != nil || ok {
		t.Fatalf("expected not verified, got %v %v", ok, err)
	}
}

func TestClient_Submit(t *testing.T) {
	var got submit.Payload
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/forms/{id}/submit", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(submit.Response{RedirectURL: "https://x.test"})
	})
	c := newClient(t, mux)

	payload := submit.Payload{
		FormID:   "contact",
		Data:     model.SubmissionState{"email": "a@b.com"},
		Metadata: submit.Metadata{Source: model.ModeEmbed, SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	resp, err := c.Submit(context.Background(), "contact", payload)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.RedirectURL != "https://x.test" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_SubmitStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/forms/{id}/submit", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid submission","errors":{"/data/email":["Already used"],"plan":"Unknown plan"}}`))
	})
	c := newClient(t, mux)

	_, err := c.Submit(context.Background(), "contact", submit.Payload{FormID: "contact"})
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity || statusErr.Message != "invalid submission" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	want := map[string][]string{"/data/email": {"Already used"}, "plan": {"Unknown plan"}}
	if diff := cmp.Diff(want, statusErr.FieldErrors()); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	var carrier submit.FieldErrorCarrier
	if !errors.As(err, &carrier) {
		t.Fatalf("status error must expose field errors to the dispatcher")
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	if _, err := client.New("ftp://example.com"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
