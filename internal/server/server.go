// Package server serves embedded forms over HTTP: it mounts a form through
// the domain gate, keeps the step controller in a session between posts and
// renders each step, validation feedback and the final outcome as HTML.
package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/theme"
)

// RedirectHeader carries the redirect URL of a completed form for scripted
// clients that cannot follow a 303 inside the embed.
const RedirectHeader = "X-Formflow-Redirect"

// RequestHeader marks scripted (fetch) requests; such requests never receive
// a 303.
const RequestHeader = "X-Formflow-Request"

const (
	maxFormBytes = 1 << 20
	actionRetry  = "retry"
)

// SessionExpiredMessage replaces the form when a post names an unknown
// session.
const SessionExpiredMessage = "This form session has expired. Please reload the page."

// PreviewMessage heads the collected values of a preview submission.
const PreviewMessage = "Preview only: nothing was sent."

// PageRenderer renders steps and notices.
type PageRenderer interface {
	render.Renderer
	render.NoticeRenderer
}

// Server is the embed HTTP front end.
type Server struct {
	gate     *embed.Gate
	sessions session.Store
	renderer PageRenderer
	logger   *zap.Logger
	prefix   string
	locks    *sessionLocks
}

// Option configures a Server.
type Option func(*Server)

// WithSessionStore replaces the in-memory session store.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithRenderer replaces the vanilla HTML renderer.
func WithRenderer(r PageRenderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrefix mounts the embed routes below prefix (default "/embed").
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		if trimmed := strings.Trim(prefix, "/"); trimmed != "" {
			s.prefix = "/" + trimmed
		}
	}
}

// New builds a Server mounting forms through gate.
func New(gate *embed.Gate, opts ...Option) (*Server, error) {
	if gate == nil {
		return nil, errors.New("server: gate is required")
	}
	s := &Server{
		gate:   gate,
		logger: zap.NewNop(),
		prefix: "/embed",
		locks:  newSessionLocks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore()
	}
	if s.renderer == nil {
		r, err := vanilla.New(vanilla.WithStylesheet(s.prefix + "/assets/" + vanilla.StylesheetName))
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	return s, nil
}

// Register adds the embed routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET "+s.prefix+"/assets/", http.StripPrefix(s.prefix+"/assets/", http.FileServerFS(vanilla.AssetsFS())))
	mux.HandleFunc("GET "+s.prefix+"/{formId}", s.handleMount)
	mux.HandleFunc("GET "+s.prefix+"/{formId}/loading", s.handleLoading)
	mux.HandleFunc("POST "+s.prefix+"/{formId}/sessions/{sid}/steps", s.handleStep)
	mux.HandleFunc("POST "+s.prefix+"/{formId}/sessions/{sid}/back", s.handleBack)
	mux.HandleFunc("POST "+s.prefix+"/{formId}/sessions/{sid}/retry", s.handleRetry)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler returns a mux serving only the embed routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	formID := r.PathValue("formId")

	mode, err := model.ParseMode(query.Get("mode"))
	if err != nil {
		s.writeNotice(w, r, http.StatusBadRequest, render.NewNotice(render.NoticeError, ""), render.RenderOptions{})
		return
	}
	pageURL := strings.TrimSpace(query.Get("url"))
	if pageURL == "" {
		pageURL = r.Referer()
	}
	req := embed.MountRequest{
		FormID:    formID,
		Mode:      mode,
		PageURL:   pageURL,
		UserAgent: r.UserAgent(),
		Theme:     theme.FromQuery(query),
	}

	mount, err := s.gate.Mount(ctx, req)
	if err != nil {
		s.logger.Debug("mount abandoned", zap.String("form_id", formID), zap.Error(err))
		return
	}
	if !mount.Ready() {
		s.writeNotice(w, r, mountStatus(mount.Status), mount.Notice(), render.RenderOptions{Mode: mode})
		return
	}

	sid := session.NewID()
	rec := session.Record{
		Snapshot:  mount.Controller.Snapshot(),
		Mode:      mount.Mode,
		PageURL:   req.PageURL,
		UserAgent: req.UserAgent,
		Theme:     req.Theme,
		CSRF:      session.NewID(),
	}
	if err := s.sessions.Save(ctx, sid, rec); err != nil {
		s.fail(w, r, "save session", err)
		return
	}
	s.logger.Info("form mounted",
		zap.String("form_id", formID),
		zap.String("mode", string(mount.Mode)),
		zap.String("session", sid))
	s.writeStep(w, r, http.StatusOK, sid, rec, mount)
}

// handleLoading renders the loading placeholder a host page shows while the
// mount request is in flight. It touches neither the gate nor the sessions.
func (s *Server) handleLoading(w http.ResponseWriter, r *http.Request) {
	opts := render.RenderOptions{Style: theme.Style(theme.Resolve(theme.FromQuery(r.URL.Query())))}
	s.writeNotice(w, r, http.StatusOK, render.NewNotice(render.NoticeLoading, ""), opts)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	defer s.locks.lock(r.PathValue("sid"))()

	sid, rec, mount, ok := s.resume(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ctrl := mount.Controller

	if ctrl.Status() == flow.StatusDispatched {
		outcome, _ := ctrl.Outcome()
		s.writeOutcome(w, r, outcome, rec, mount)
		return
	}
	if posted := r.PostForm.Get(render.HiddenStep); posted != "" && posted != strconv.Itoa(ctrl.Index()) {
		s.writeStep(w, r, http.StatusConflict, sid, rec, mount)
		return
	}

	view := ctrl.View()
	tr, err := ctrl.SubmitStep(ctx, stepValues(view.Step, r.PostForm))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail(w, r, "submit step", err)
		return
	}
	s.afterTransition(w, r, sid, rec, mount, tr)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	defer s.locks.lock(r.PathValue("sid"))()

	sid, rec, mount, ok := s.resume(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ctrl := mount.Controller

	tr, err := ctrl.Retry(ctx)
	switch {
	case errors.Is(err, flow.ErrFormCompleted):
		outcome, _ := ctrl.Outcome()
		s.writeOutcome(w, r, outcome, rec, mount)
		return
	case errors.Is(err, flow.ErrNothingToRetry):
		s.writeStep(w, r, http.StatusConflict, sid, rec, mount)
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		s.fail(w, r, "retry", err)
		return
	}
	s.afterTransition(w, r, sid, rec, mount, tr)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	defer s.locks.lock(r.PathValue("sid"))()

	sid, rec, mount, ok := s.resume(w, r)
	if !ok {
		return
	}
	ctrl := mount.Controller

	if _, err := ctrl.Previous(); err != nil {
		if errors.Is(err, flow.ErrFormCompleted) {
			outcome, _ := ctrl.Outcome()
			s.writeOutcome(w, r, outcome, rec, mount)
			return
		}
		s.fail(w, r, "previous step", err)
		return
	}
	rec.Snapshot = ctrl.Snapshot()
	if err := s.sessions.Save(r.Context(), sid, rec); err != nil {
		s.fail(w, r, "save session", err)
		return
	}
	s.writeStep(w, r, http.StatusOK, sid, rec, mount)
}

func (s *Server) afterTransition(w http.ResponseWriter, r *http.Request, sid string, rec session.Record, mount embed.Mount, tr flow.Transition) {
	rec.Snapshot = mount.Controller.Snapshot()
	if err := s.sessions.Save(r.Context(), sid, rec); err != nil {
		s.fail(w, r, "save session", err)
		return
	}

	switch tr.Kind {
	case flow.TransitionDispatched:
		s.logger.Info("form completed",
			zap.String("form_id", rec.Snapshot.FormID),
			zap.String("session", sid),
			zap.String("outcome", string(tr.Outcome.Kind)))
		s.writeOutcome(w, r, tr.Outcome, rec, mount)
	case flow.TransitionFailed:
		if len(tr.Errors) > 0 {
			s.writeStep(w, r, http.StatusUnprocessableEntity, sid, rec, mount)
			return
		}
		notice := render.NewNotice(render.NoticeFailure, submit.GenericErrorMessage)
		s.writeNotice(w, r, http.StatusBadGateway, notice, s.options(sid, rec, mount, s.sessionURL(rec.Snapshot.FormID, sid, actionRetry)))
	case flow.TransitionInvalid:
		s.writeStep(w, r, http.StatusUnprocessableEntity, sid, rec, mount)
	default:
		s.writeStep(w, r, http.StatusOK, sid, rec, mount)
	}
}

// resume loads the session named by the request, checks the anti-forgery
// token and rebuilds the controller. On failure the response is written and
// ok is false.
func (s *Server) resume(w http.ResponseWriter, r *http.Request) (sid string, rec session.Record, mount embed.Mount, ok bool) {
	ctx := r.Context()
	formID := r.PathValue("formId")
	sid = r.PathValue("sid")

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := parseBody(r); err != nil {
		s.writeNotice(w, r, http.StatusBadRequest, render.NewNotice(render.NoticeError, ""), render.RenderOptions{})
		return "", session.Record{}, embed.Mount{}, false
	}

	expired := render.NewNotice(render.NoticeError, SessionExpiredMessage)
	if !session.ValidID(sid) {
		s.writeNotice(w, r, http.StatusNotFound, expired, render.RenderOptions{})
		return "", session.Record{}, embed.Mount{}, false
	}
	rec, err := s.sessions.Load(ctx, sid)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Error("load session", zap.String("session", sid), zap.Error(err))
		}
		s.writeNotice(w, r, http.StatusGone, expired, render.RenderOptions{})
		return "", session.Record{}, embed.Mount{}, false
	}
	if rec.Snapshot.FormID != formID {
		s.writeNotice(w, r, http.StatusNotFound, expired, render.RenderOptions{})
		return "", session.Record{}, embed.Mount{}, false
	}
	if r.PostForm.Get(render.HiddenCSRF) != rec.CSRF {
		s.logger.Warn("csrf token mismatch", zap.String("session", sid))
		s.writeNotice(w, r, http.StatusForbidden, render.NewNotice(render.NoticeError, ""), render.RenderOptions{Mode: rec.Mode})
		return "", session.Record{}, embed.Mount{}, false
	}

	mount, err = s.gate.Resume(ctx, s.mountRequest(formID, rec), rec.Snapshot)
	if err != nil {
		return "", session.Record{}, embed.Mount{}, false
	}
	if !mount.Ready() {
		s.writeNotice(w, r, mountStatus(mount.Status), mount.Notice(), render.RenderOptions{Mode: rec.Mode})
		return "", session.Record{}, embed.Mount{}, false
	}
	return sid, rec, mount, true
}

func (s *Server) mountRequest(formID string, rec session.Record) embed.MountRequest {
	return embed.MountRequest{
		FormID:    formID,
		Mode:      rec.Mode,
		PageURL:   rec.PageURL,
		UserAgent: rec.UserAgent,
		Theme:     rec.Theme,
	}
}

func (s *Server) sessionURL(formID, sid, action string) string {
	return s.prefix + "/" + url.PathEscape(formID) + "/sessions/" + url.PathEscape(sid) + "/" + action
}

func (s *Server) options(sid string, rec session.Record, mount embed.Mount, action string) render.RenderOptions {
	values, fieldErrors, formErrors := mount.Controller.Feedback()
	hidden := render.MergeHiddenFields(nil, render.SessionFields(mount.Form.ID, sid, mount.Controller.Index())...)
	hidden = render.MergeHiddenFields(hidden, render.CSRFToken(rec.CSRF))
	return render.RenderOptions{
		Mode:       rec.Mode,
		Values:     values,
		Errors:     fieldErrors,
		FormErrors: formErrors,
		Style:      theme.Style(mount.Theme),
		Theme:      mount.ThemeConfig,
		Hidden:     hidden,
		Action:     action,
		BackAction: s.sessionURL(mount.Form.ID, sid, "back"),
	}
}

func (s *Server) writeStep(w http.ResponseWriter, r *http.Request, status int, sid string, rec session.Record, mount embed.Mount) {
	opts := s.options(sid, rec, mount, s.sessionURL(mount.Form.ID, sid, "steps"))
	body, err := s.renderer.Render(r.Context(), mount.Controller.View(), opts)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.fail(w, r, "render step", err)
		return
	}
	s.writeHTML(w, status, body)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, outcome submit.Outcome, rec session.Record, mount embed.Mount) {
	if outcome.RedirectURL != "" {
		target := redirectTarget(outcome.RedirectURL, rec.PageURL)
		w.Header().Set(RedirectHeader, target)
		if !scripted(r) {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}
	message := outcome.Message
	if outcome.Kind == submit.OutcomePreview && message == "" {
		message = PreviewMessage
	}
	notice := render.NewNotice(render.NoticeSuccess, message)
	notice.Values = outcome.Values
	hidden := render.MergeHiddenFields(nil, render.Hidden(render.HiddenFormID, rec.Snapshot.FormID))
	s.writeNotice(w, r, http.StatusOK, notice, render.RenderOptions{
		Mode:   rec.Mode,
		Style:  theme.Style(mount.Theme),
		Theme:  mount.ThemeConfig,
		Hidden: hidden,
	})
}

func (s *Server) writeNotice(w http.ResponseWriter, r *http.Request, status int, notice render.Notice, opts render.RenderOptions) {
	if opts.Hidden[render.HiddenFormID] == "" {
		opts.Hidden = render.MergeHiddenFields(opts.Hidden, render.Hidden(render.HiddenFormID, r.PathValue("formId")))
	}
	body, err := s.renderer.RenderNotice(r.Context(), notice, opts)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("render notice", zap.String("kind", string(notice.Kind)), zap.Error(err))
		http.Error(w, notice.Message, status)
		return
	}
	s.writeHTML(w, status, body)
}

func (s *Server) writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
	s.writeNotice(w, r, http.StatusInternalServerError, render.NewNotice(render.NoticeError, ""), render.RenderOptions{})
}

func mountStatus(status embed.Status) int {
	switch status {
	case embed.StatusNotVerified:
		return http.StatusForbidden
	case embed.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func scripted(r *http.Request) bool {
	return r.Header.Get(RequestHeader) != "" ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
