package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/formsource"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

const formsJSON = `{
  "forms": [
    {
      "id": "signup",
      "name": "Signup",
      "domains": ["example.com"],
      "steps": [
        {"id": "about", "title": "About you", "fields": [
          {"id": "name", "type": "text", "required": true},
          {"id": "email", "type": "email", "required": true}
        ]},
        {"id": "confirm", "fields": [
          {"id": "terms", "label": "Accept terms", "type": "checkbox", "required": true}
        ]}
      ]
    },
    {
      "id": "newsletter",
      "name": "Newsletter",
      "domains": ["example.com"],
      "steps": [
        {"id": "main", "fields": [{"id": "email", "type": "email", "required": true}]}
      ]
    }
  ]
}`

var (
	actionPattern = regexp.MustCompile(`action="/embed/[a-z]+/sessions/([0-9a-f-]+)/steps"`)
	csrfPattern   = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)
)

type recorder struct {
	mu       sync.Mutex
	payloads []submit.Payload
	respond  func(n int) (submit.Response, error)
}

func (r *recorder) Submit(_ context.Context, _ string, payload submit.Payload) (submit.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.respond == nil {
		return submit.Response{}, nil
	}
	return r.respond(len(r.payloads))
}

func newHandler(t *testing.T, sub *recorder) http.Handler {
	t.Helper()
	forms, err := formsource.LoadFS(fstest.MapFS{"forms.json": {Data: []byte(formsJSON)}})
	if err != nil {
		t.Fatalf("load forms: %v", err)
	}
	verifier := embed.VerifierFunc(func(ctx context.Context, formID, domain string) (bool, error) {
		form, err := forms.Form(ctx, formID)
		if err != nil {
			return false, nil
		}
		return embed.MatchDomain(form.Domains, domain), nil
	})
	gate, err := embed.NewGate(forms, embed.WithVerifier(verifier), embed.WithSubmitter(sub))
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	srv, err := server.New(gate)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(t *testing.T, h http.Handler, target string, values url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type embedSession struct {
	id   string
	csrf string
}

func mount(t *testing.T, h http.Handler, target string) embedSession {
	t.Helper()
	rec := get(t, h, target)
	if rec.Code != http.StatusOK {
		t.Fatalf("mount %s: status %d: %s", target, rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	action := actionPattern.FindStringSubmatch(body)
	csrf := csrfPattern.FindStringSubmatch(body)
	if action == nil || csrf == nil {
		t.Fatalf("mount %s: missing session markers in:\n%s", target, body)
	}
	return embedSession{id: action[1], csrf: csrf[1]}
}

func (s embedSession) values(step string, pairs ...string) url.Values {
	values := url.Values{"_csrf": {s.csrf}, "_step": {step}}
	for i := 0; i+1 < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return values
}

func TestServer_MultiStepFlowWithBackAndRedirect(t *testing.T) {
	sub := &recorder{respond: func(int) (submit.Response, error) {
		return submit.Response{RedirectURL: "/thanks"}, nil
	}}
	h := newHandler(t, sub)

	sess := mount(t, h, "/embed/signup?url="+url.QueryEscape("https://www.example.com/join")+"&primaryColor=%23ff0000")
	steps := "/embed/signup/sessions/" + sess.id + "/steps"
	back := "/embed/signup/sessions/" + sess.id + "/back"

	rec := post(t, h, steps, sess.values("0", "name", "", "email", "ada@example.com"), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid step, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Step 1 of 2") {
		t.Fatalf("expected first step to be redisplayed:\n%s", rec.Body.String())
	}

	rec = post(t, h, steps, sess.values("0", "name", "Ada", "email", "ada@example.com"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Step 2 of 2") {
		t.Fatalf("expected second step, got %d:\n%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `formaction="`+back+`"`) {
		t.Fatalf("expected back action on second step:\n%s", rec.Body.String())
	}

	rec = post(t, h, back, sess.values("1"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Step 1 of 2") {
		t.Fatalf("expected first step after back, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Ada"`) {
		t.Fatalf("expected entered name to be kept:\n%s", rec.Body.String())
	}

	rec = post(t, h, steps, sess.values("1", "terms", "on"), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a stale step post, got %d", rec.Code)
	}

	rec = post(t, h, steps, sess.values("0", "name", "Ada", "email", "ada@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected second step again, got %d", rec.Code)
	}

	rec = post(t, h, steps, sess.values("1", "terms", "on"), nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d:\n%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "https://www.example.com/thanks" {
		t.Fatalf("unexpected redirect location %q", got)
	}
	if got := rec.Header().Get(server.RedirectHeader); got != "https://www.example.com/thanks" {
		t.Fatalf("unexpected redirect header %q", got)
	}

	if len(sub.payloads) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(sub.payloads))
	}
	payload := sub.payloads[0]
	want := model.SubmissionState{"name": "Ada", "email": "ada@example.com", "terms": true}
	if diff := cmp.Diff(want, payload.Data); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if payload.Metadata.Source != model.ModeEmbed || payload.Metadata.URL != "https://www.example.com/join" {
		t.Fatalf("unexpected metadata: %+v", payload.Metadata)
	}

	rec = post(t, h, steps, sess.values("1", "terms", "on"), map[string]string{server.RequestHeader: "1"})
	if rec.Code != http.StatusOK || rec.Header().Get(server.RedirectHeader) == "" {
		t.Fatalf("expected completed session to report the outcome again, got %d", rec.Code)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("completed form must not submit twice, got %d", len(sub.payloads))
	}
}

func TestServer_ConcurrentFinalPostsSubmitOnce(t *testing.T) {
	sub := &recorder{respond: func(int) (submit.Response, error) {
		time.Sleep(30 * time.Millisecond)
		return submit.Response{SuccessMessage: "Welcome aboard"}, nil
	}}
	h := newHandler(t, sub)

	sess := mount(t, h, "/embed/newsletter?url="+url.QueryEscape("https://example.com/"))
	steps := "/embed/newsletter/sessions/" + sess.id + "/steps"

	const posts = 4
	codes := make([]int, posts)
	bodies := make([]string, posts)
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := post(t, h, steps, sess.values("0", "email", "ada@example.com"), nil)
			codes[i] = rec.Code
			bodies[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()

	sub.mu.Lock()
	submitted := len(sub.payloads)
	sub.mu.Unlock()
	if submitted != 1 {
		t.Fatalf("expected exactly one submission, got %d", submitted)
	}
	for i := range codes {
		if codes[i] != http.StatusOK || !strings.Contains(bodies[i], "Welcome aboard") {
			t.Fatalf("post %d: expected the success outcome, got %d:\n%s", i, codes[i], bodies[i])
		}
	}
}

func TestServer_MountNotices(t *testing.T) {
	h := newHandler(t, &recorder{})

	cases := []struct {
		name   string
		target string
		status int
		text   string
	}{
		{"unverified", "/embed/signup?url=" + url.QueryEscape("https://evil.test/"), http.StatusForbidden, "Domain not verified"},
		{"missing referer", "/embed/signup", http.StatusForbidden, "Domain not verified"},
		{"unknown form", "/embed/nope?mode=preview", http.StatusNotFound, "Form not found"},
		{"bad mode", "/embed/signup?mode=draft", http.StatusBadRequest, "could not be loaded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, h, tc.target)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.text) {
				t.Fatalf("expected %q in:\n%s", tc.text, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "<form") {
				t.Fatalf("no form may be rendered for a blocked mount")
			}
		})
	}
}

func TestServer_LoadingPlaceholder(t *testing.T) {
	sub := &recorder{}
	h := newHandler(t, sub)

	rec := get(t, h, "/embed/signup/loading?primaryColor=%23ff0000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"formflow-notice-loading", `role="status"`, "Loading form...", "#ff0000"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in loading placeholder:\n%s", want, body)
		}
	}
	if strings.Contains(body, "_csrf") {
		t.Fatalf("loading placeholder must not open a session:\n%s", body)
	}
	if len(sub.payloads) != 0 {
		t.Fatalf("loading placeholder must not submit, got %d", len(sub.payloads))
	}
}

func TestServer_PreviewNeverSubmits(t *testing.T) {
	sub := &recorder{}
	h := newHandler(t, sub)

	sess := mount(t, h, "/embed/newsletter?mode=preview")
	rec := post(t, h, "/embed/newsletter/sessions/"+sess.id+"/steps",
		sess.values("0", "email", "ada@example.com"), map[string]string{server.RequestHeader: "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{server.PreviewMessage, "<dt>email</dt><dd>ada@example.com</dd>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in:\n%s", want, body)
		}
	}
	if len(sub.payloads) != 0 {
		t.Fatalf("preview must not submit, got %d payloads", len(sub.payloads))
	}
}

func TestServer_FailureOffersRetry(t *testing.T) {
	sub := &recorder{respond: func(n int) (submit.Response, error) {
		if n == 1 {
			return submit.Response{}, errors.New("upstream unavailable")
		}
		return submit.Response{SuccessMessage: "Welcome aboard"}, nil
	}}
	h := newHandler(t, sub)

	sess := mount(t, h, "/embed/newsletter?url="+url.QueryEscape("https://example.com/"))
	rec := post(t, h, "/embed/newsletter/sessions/"+sess.id+"/steps", sess.values("0", "email", "ada@example.com"), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	retry := "/embed/newsletter/sessions/" + sess.id + "/retry"
	if !strings.Contains(rec.Body.String(), `action="`+retry+`"`) {
		t.Fatalf("expected retry form:\n%s", rec.Body.String())
	}

	rec = post(t, h, retry, sess.values("0"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Welcome aboard") {
		t.Fatalf("expected success after retry, got %d:\n%s", rec.Code, rec.Body.String())
	}
	if len(sub.payloads) != 2 {
		t.Fatalf("expected two attempts, got %d", len(sub.payloads))
	}
	if diff := cmp.Diff(sub.payloads[0].Data, sub.payloads[1].Data); diff != "" {
		t.Fatalf("retry must resend the same data (-first +second):\n%s", diff)
	}
}

func TestServer_SessionGuards(t *testing.T) {
	h := newHandler(t, &recorder{})
	sess := mount(t, h, "/embed/newsletter?mode=preview")

	forged := sess.values("0", "email", "ada@example.com")
	forged.Set("_csrf", "forged")
	if rec := post(t, h, "/embed/newsletter/sessions/"+sess.id+"/steps", forged, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a bad token, got %d", rec.Code)
	}

	if rec := post(t, h, "/embed/signup/sessions/"+sess.id+"/steps", sess.values("0"), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a session of another form, got %d", rec.Code)
	}

	rec := post(t, h, "/embed/newsletter/sessions/00000000-0000-4000-8000-000000000000/steps", sess.values("0"), nil)
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 for an unknown session, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), server.SessionExpiredMessage) {
		t.Fatalf("expected expiry message:\n%s", rec.Body.String())
	}
}

func TestServer_HealthAndAssets(t *testing.T) {
	h := newHandler(t, &recorder{})
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	rec := get(t, h, "/embed/assets/formflow-vanilla.css")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".formflow-embed") {
		t.Fatalf("expected stylesheet, got %d", rec.Code)
	}
}
