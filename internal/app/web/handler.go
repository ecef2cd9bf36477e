package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nuid"
	"go.uber.org/zap"

	"github.com/yellowbridge/lamentwall/internal/app/handoff"
	"github.com/yellowbridge/lamentwall/internal/app/identity"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
	"github.com/yellowbridge/lamentwall/internal/app/petition"
	"github.com/yellowbridge/lamentwall/internal/app/wall"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"github.com/yellowbridge/lamentwall/internal/platform/auth"
	"github.com/yellowbridge/lamentwall/internal/platform/env"
	"github.com/yellowbridge/lamentwall/internal/platform/htmx"
	"github.com/yellowbridge/lamentwall/internal/platform/logging"
	"github.com/yellowbridge/lamentwall/internal/platform/metrics"
	"github.com/yellowbridge/lamentwall/services/frontend"
)

const (
	VisitorCookieName    = "lw_vid"
	oauthStateCookieName = "lw_oauth_state"
	oauthNextCookieName  = "lw_oauth_next"
	visitorCookieMaxAge  = 365 * 24 * 60 * 60
)

// API is the upstream surface used by both pages.
type API interface {
	petition.API
	wall.API
}

type Handler struct {
	Config    env.Config
	Log       *zap.Logger
	Petitions *petition.Service
	Wall      *wall.Service
	Handoff   handoff.Slot
	Prefs     locale.PreferenceRepository
	Identity  *identity.Service
	Sessions  auth.Manager
	// Ready backs /readyz. Nil means always ready.
	Ready    func(ctx context.Context) error
	NewVisit func() string
}

func NewHandler(cfg env.Config, log *zap.Logger, api API, slot handoff.Slot, prefs locale.PreferenceRepository, identitySvc *identity.Service, sessions auth.Manager) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if slot == nil {
		slot = handoff.NewMemorySlot(cfg.HandoffTTL)
	}
	if prefs == nil {
		prefs = locale.NewMemoryRepository()
	}
	return &Handler{
		Config:    cfg,
		Log:       log,
		Petitions: petition.NewService(api, log),
		Wall:      wall.NewService(api, log),
		Handoff:   slot,
		Prefs:     prefs,
		Identity:  identitySvc,
		Sessions:  sessions,
		NewVisit:  nuid.Next,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(locale.Middleware(locale.MiddlewareOptions{
		IsPage:    isPage,
		Preferred: h.preferredLocale,
	}))

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", metrics.DefaultHandler())
	r.Handle("/static/*", http.StripPrefix("/static/", frontend.StaticHandler()))

	r.Get("/", h.handleWall)
	r.Get("/wall", h.handleWallRedirect)
	r.Get("/petition", h.handlePetition)
	r.Get("/petition/{petitionID}", h.handlePetition)
	r.Post("/petition/{petitionID}/sign", h.handleSign)
	r.Get("/dashboard", h.handleDashboard)
	r.Post("/dashboard/petitions", h.handleCreatePetition)

	r.Get("/lang/{code}", h.handleLanguage)
	r.Get("/auth/login", h.handleLogin)
	r.Get("/auth/callback", h.handleCallback)
	r.Post("/auth/logout", h.handleLogout)

	r.Route("/fragments", func(fr chi.Router) {
		fr.Get("/petition/{petitionID}/count", h.handleCount)
		fr.Get("/wall/feed", h.handleFeed)
		fr.Get("/wall/stats", h.handleStats)
		fr.Get("/wall/burden", h.handleBurden)
		fr.Get("/wall/form", h.handleBurdenForm)
		fr.Get("/wall/form/cancel", h.handleBurdenCancel)
	})

	r.Post("/wall/pray", h.handlePray)
	r.Post("/wall/amen/{prayerID}", h.handleAmen)
	r.Post("/wall/petition-from/{prayerID}", h.handlePetitionFrom)

	return r
}

func isPage(r *http.Request) bool {
	switch p := r.URL.Path; {
	case p == "/", p == "/wall", p == "/dashboard", p == "/petition":
		return true
	case strings.HasPrefix(p, "/petition/") && !strings.HasSuffix(p, "/sign"):
		return true
	default:
		return false
	}
}

// preferredLocale reads the cookie first, then the visitor's stored choice.
func (h *Handler) preferredLocale(r *http.Request) (string, bool) {
	if code, ok := locale.FromCookie(r); ok {
		return code, true
	}
	vid := visitorID(r)
	if vid == "" {
		return "", false
	}
	code, err := h.Prefs.FindPreference(r.Context(), vid)
	if err != nil {
		if !errors.Is(err, locale.ErrNotFound) {
			h.Log.Warn("find locale preference failed", zap.Error(err))
		}
		return "", false
	}
	return locale.ParseCode(code)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	h.handleHealth(w, r)
}

// Wall

func (h *Handler) handleWall(w http.ResponseWriter, r *http.Request) {
	feed := h.Wall.Feed(r.Context(), r.URL.Query().Get("type"))
	h.page(w, r, frontend.WallPage(frontend.WallView{
		Shell: frontend.Shell{Path: currentPath(r)},
		Feed:  feed,
	}))
}

func (h *Handler) handleWallRedirect(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, frontend.RedirectPage(localized(r, "/")))
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed := h.Wall.Feed(r.Context(), r.URL.Query().Get("type"))
	h.render(w, r, http.StatusOK, frontend.WallFeedUpdate(feed))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Wall.Stats(r.Context())
	if err != nil {
		// keep whatever the page already shows
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.render(w, r, http.StatusOK, frontend.WallStats(stats))
}

func (h *Handler) handleBurden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, frontend.BurdenInterstitial(h.Config.BurdenDelay))
}

func (h *Handler) handleBurdenForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, frontend.BurdenSlot(wall.BurdenState{Open: true}))
}

func (h *Handler) handleBurdenCancel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, frontend.BurdenSlot(wall.BurdenState{}))
}

func (h *Handler) handlePray(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	state := h.Wall.Submit(r.Context(), wall.BurdenForm{
		Type:    r.PostForm.Get("type"),
		Text:    r.PostForm.Get("text"),
		Author:  r.PostForm.Get("author"),
		Country: r.PostForm.Get("country"),
		HP:      r.PostForm.Get("hp"),
	})
	if !htmx.IsRequest(r) {
		feed := h.Wall.Feed(r.Context(), "")
		h.page(w, r, frontend.WallPage(frontend.WallView{
			Shell:  frontend.Shell{Path: "/"},
			Feed:   feed,
			Burden: state,
		}))
		return
	}
	if state.Submitted {
		htmx.Trigger(w, htmx.EventPrayersChanged)
	}
	h.render(w, r, http.StatusOK, frontend.BurdenSlot(state))
}

func (h *Handler) handleAmen(w http.ResponseWriter, r *http.Request) {
	prayerID, err := strconv.ParseInt(chi.URLParam(r, "prayerID"), 10, 64)
	if err != nil || prayerID <= 0 {
		http.Error(w, "invalid prayer id", http.StatusBadRequest)
		return
	}
	current, _ := strconv.Atoi(r.FormValue("count"))
	out := h.Wall.Amen(r.Context(), prayerID, current)
	if !htmx.IsRequest(r) {
		http.Redirect(w, r, localized(r, "/"), http.StatusSeeOther)
		return
	}
	if out.Recorded {
		htmx.Trigger(w, htmx.EventStatsChanged)
	}
	h.render(w, r, http.StatusOK, frontend.AmenButton(prayerID, out.Count))
}

// handlePetitionFrom stashes the prayer for the petition page, or starts
// sign-in for anonymous visitors.
func (h *Handler) handlePetitionFrom(w http.ResponseWriter, r *http.Request) {
	prayerID, err := strconv.ParseInt(chi.URLParam(r, "prayerID"), 10, 64)
	if err != nil || prayerID <= 0 {
		http.Error(w, "invalid prayer id", http.StatusBadRequest)
		return
	}
	if _, ok := h.Sessions.FromRequest(r); !ok {
		htmx.Redirect(w, r, "/auth/login?next="+url.QueryEscape(localized(r, "/")))
		return
	}

	prayerType := r.FormValue("type")
	if !contracts.IsPrayerType(prayerType) {
		prayerType = ""
	}
	c := handoff.Context{
		PrayerID:   prayerID,
		PrayerText: strings.TrimSpace(r.FormValue("text")),
		PrayerType: prayerType,
	}
	if err := h.Handoff.Put(r.Context(), h.ensureVisitor(w, r), c); err != nil {
		h.Log.Warn("stash petition handoff failed", zap.Int64("prayer_id", prayerID), zap.Error(err))
		http.Error(w, "could not start petition", http.StatusInternalServerError)
		return
	}
	htmx.Redirect(w, r, localized(r, "/petition"))
}

// Petition

func (h *Handler) petitionID(r *http.Request) string {
	if id := strings.TrimSpace(chi.URLParam(r, "petitionID")); id != "" {
		return id
	}
	return h.Config.PetitionID
}

func (h *Handler) handlePetition(w http.ResponseWriter, r *http.Request) {
	view := h.petitionView(r, currentPath(r), petition.FormState{})
	if vid := visitorID(r); vid != "" {
		c, ok, err := h.Handoff.Take(r.Context(), vid)
		switch {
		case err != nil:
			h.Log.Warn("take petition handoff failed", zap.Error(err))
		case ok:
			view.Handoff = &c
		}
	}
	h.page(w, r, frontend.PetitionPage(view))
}

// petitionView builds the full page. path is the page the shell links back
// to, which for a form post is the petition itself and not the post target.
func (h *Handler) petitionView(r *http.Request, path string, form petition.FormState) frontend.PetitionView {
	id := h.petitionID(r)
	page := h.Petitions.LoadPage(r.Context(), id)
	return frontend.PetitionView{
		Shell:    frontend.Shell{Path: path},
		Page:     page,
		Form:     form,
		ShareURL: absoluteURL(r, localized(r, petitionPath(id))),
		Refresh:  h.Config.CountRefresh,
	}
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	id := h.petitionID(r)
	count, err := h.Petitions.Count(r.Context(), id)
	h.render(w, r, http.StatusOK, frontend.CounterPanel(id, count, err != nil, h.Config.CountRefresh))
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := h.petitionID(r)
	state := h.Petitions.Submit(r.Context(), id, petition.Form{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Country: r.PostForm.Get("country"),
		Message: r.PostForm.Get("message"),
		HP:      r.PostForm.Get("hp"),
	})
	if !htmx.IsRequest(r) {
		h.page(w, r, frontend.PetitionPage(h.petitionView(r, petitionPath(id), state)))
		return
	}
	if state.Submitted {
		htmx.Trigger(w, htmx.EventSignatureRecorded)
	}
	h.render(w, r, http.StatusOK, frontend.PetitionForm(id, state))
}

// Dashboard

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, petition.AdminState{})
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, state petition.AdminState) {
	view := frontend.DashboardView{
		Shell:         frontend.Shell{Path: "/dashboard"},
		Admin:         state,
		SignInEnabled: h.Identity.Enabled(),
	}
	if claims, ok := h.Sessions.FromRequest(r); ok {
		view.Viewer = &claims
	}
	h.page(w, r, frontend.DashboardPage(view))
}

func (h *Handler) handleCreatePetition(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.FromRequest(r); !ok {
		if htmx.IsRequest(r) {
			htmx.Redirect(w, r, "/auth/login?next="+url.QueryEscape(localized(r, "/dashboard")))
			return
		}
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	state := h.Petitions.Create(r.Context(), petition.AdminForm{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		LinkID:      r.PostForm.Get("link_id"),
		Token:       r.PostForm.Get("admin_token"),
	})
	if !htmx.IsRequest(r) {
		h.renderDashboard(w, r, state)
		return
	}
	h.render(w, r, http.StatusOK, frontend.AdminForm(state))
}

// Locale

func (h *Handler) handleLanguage(w http.ResponseWriter, r *http.Request) {
	code, ok := locale.ParseCode(chi.URLParam(r, "code"))
	if !ok {
		http.Error(w, "unsupported language", http.StatusBadRequest)
		return
	}
	locale.SetCookie(w, code, h.Config.CookieSecure)
	if err := h.Prefs.SavePreference(r.Context(), h.ensureVisitor(w, r), code); err != nil {
		h.Log.Warn("save locale preference failed", zap.String("locale", code), zap.Error(err))
	}
	http.Redirect(w, r, locale.WithLocale(safeNext(r.URL.Query().Get("next"), "/"), code), http.StatusSeeOther)
}

// Auth

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, authURL, err := h.Identity.BeginLogin()
	if err != nil {
		if errors.Is(err, identity.ErrOAuthDisabled) {
			http.Error(w, "sign-in is not configured", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.setShortCookie(w, oauthStateCookieName, state, 600)
	h.setShortCookie(w, oauthNextCookieName, safeNext(r.URL.Query().Get("next"), "/dashboard"), 600)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var expected, next string
	if c, err := r.Cookie(oauthStateCookieName); err == nil {
		expected = c.Value
	}
	if c, err := r.Cookie(oauthNextCookieName); err == nil {
		next = c.Value
	}
	h.setShortCookie(w, oauthStateCookieName, "", -1)
	h.setShortCookie(w, oauthNextCookieName, "", -1)

	q := r.URL.Query()
	token, claims, err := h.Identity.CompleteLogin(r.Context(), expected, q.Get("state"), q.Get("code"))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrStateMismatch), errors.Is(err, identity.ErrMissingCode):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, identity.ErrOAuthDisabled):
			http.Error(w, "sign-in is not configured", http.StatusNotFound)
		default:
			h.Log.Warn("sign-in failed", zap.Error(err))
			http.Error(w, "sign-in failed", http.StatusBadGateway)
		}
		return
	}
	h.Sessions.SetCookie(w, token, h.Config.CookieSecure)
	h.Log.Info("signed in", zap.String("subject", claims.Subject), zap.String("username", claims.Username))
	http.Redirect(w, r, safeNext(next, "/dashboard"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	http.Redirect(w, r, localized(r, "/"), http.StatusSeeOther)
}

func (h *Handler) setShortCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// visitorID returns the anonymous visitor cookie, or "".
func visitorID(r *http.Request) string {
	c, err := r.Cookie(VisitorCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ensureVisitor returns the visitor id, issuing a new cookie when missing.
func (h *Handler) ensureVisitor(w http.ResponseWriter, r *http.Request) string {
	if vid := visitorID(r); vid != "" {
		return vid
	}
	vid := h.NewVisit()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    vid,
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
		HttpOnly: true,
		Secure:   h.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return vid
}

// page serves a full document through templ's buffered handler, so a failed
// render answers 500 instead of a truncated page.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, c templ.Component) {
	templ.Handler(c, templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		h.Log.Error("render page failed", zap.String("path", r.URL.Path), zap.Error(err))
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "render failed", http.StatusInternalServerError)
		})
	})).ServeHTTP(w, r)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		h.Log.Warn("render failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func petitionPath(id string) string {
	return "/petition/" + url.PathEscape(id)
}

// currentPath is the request path and query without the locale segment.
func currentPath(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

func localized(r *http.Request, path string) string {
	return locale.Href(locale.FromContext(r.Context()), path)
}

// safeNext accepts only local absolute paths.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
