package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/app/handoff"
	"github.com/yellowbridge/lamentwall/internal/app/identity"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
	"github.com/yellowbridge/lamentwall/internal/app/petition"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"github.com/yellowbridge/lamentwall/internal/platform/auth"
	"github.com/yellowbridge/lamentwall/internal/platform/env"
	"github.com/yellowbridge/lamentwall/internal/platform/htmx"
)

// upstream is a fake petition/prayer API that records every call.
type upstream struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string][]byte
	header map[string]http.Header

	count      string
	prayers    string
	amenStatus int
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	call := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		call += "?" + r.URL.RawQuery
	}
	u.calls = append(u.calls, call)
	u.bodies[r.URL.Path] = body
	u.header[r.URL.Path] = r.Header.Clone()
	count, prayers, amenStatus := u.count, u.prayers, u.amenStatus
	u.mu.Unlock()

	switch {
	case r.URL.Path == "/api/prayers":
		_, _ = w.Write([]byte(prayers))
	case r.URL.Path == "/api/prayer-stats":
		_, _ = w.Write([]byte(`{"total_prayers":3,"total_amens":1200,"by_type":{"lament":3}}`))
	case r.URL.Path == "/api/pray":
		_, _ = w.Write([]byte(`{"id":9,"type":"lament","text":"x","created_at":"2025-03-01T10:00:00Z","amen_count":0}`))
	case strings.HasPrefix(r.URL.Path, "/api/amen/"):
		if amenStatus != 0 {
			w.WriteHeader(amenStatus)
			return
		}
		_, _ = w.Write([]byte(`{"amen_count":5}`))
	case r.URL.Path == "/api/petitions":
		_, _ = w.Write([]byte(`{"id":77}`))
	case strings.HasSuffix(r.URL.Path, "/info"):
		_, _ = w.Write([]byte(`{"title":"Save the Park","description":"Keep it green"}`))
	case strings.HasSuffix(r.URL.Path, "/count"):
		if count == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"count":` + count + `}`))
	case strings.HasSuffix(r.URL.Path, "/sign"):
		w.WriteHeader(http.StatusCreated)
	default:
		http.NotFound(w, r)
	}
}

func (u *upstream) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func (u *upstream) Body(path string) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies[path]
}

func (u *upstream) Header(path string) http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.header[path]
}

func (u *upstream) set(fn func(*upstream)) {
	u.mu.Lock()
	fn(u)
	u.mu.Unlock()
}

func (u *upstream) CallsTo(prefix string) []string {
	var out []string
	for _, c := range u.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	h        *Handler
	router   http.Handler
	upstream *upstream
	sessions auth.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := &upstream{
		bodies:  map[string][]byte{},
		header:  map[string]http.Header{},
		count:   "42",
		prayers: `[]`,
	}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg, err := env.LoadFrom(map[string]string{"API_BASE_URL": srv.URL})
	if err != nil {
		t.Fatalf("LoadFrom error: %v", err)
	}
	sessions := auth.NewManager("test-secret", time.Hour)
	idSvc := identity.NewService(
		identity.NewGitHubConfig("client", "secret", "http://localhost/auth/callback"),
		identity.NewMemoryRepository(),
		sessions,
	)
	h := NewHandler(cfg, zap.NewNop(), apiclient.New(srv.URL, time.Second), handoff.NewMemorySlot(time.Minute), locale.NewMemoryRepository(), idSvc, sessions)
	seq := 0
	h.NewVisit = func() string {
		seq++
		return "visitor-" + strconv.Itoa(seq)
	}
	return &fixture{h: h, router: h.Router(), upstream: up, sessions: sessions}
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, r)
	return rr
}

func (f *fixture) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := f.sessions.Sign(auth.Claims{Subject: "1", Username: "octocat", Name: "Mona"})
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

func formRequest(method, target string, values url.Values, hx bool) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if hx {
		req.Header.Set(htmx.RequestHeader, "true")
	}
	return req
}

func cookieValue(rr *httptest.ResponseRecorder, name string) (string, bool) {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestSign_EmptyNameNeverReachesUpstream(t *testing.T) {
	f := newFixture(t)
	rr := f.do(formRequest(http.MethodPost, "/petition/save_the_park/sign", url.Values{"name": {"   "}}, true))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), petition.MsgNameRequired) {
		t.Fatalf("expected validation message:\n%s", rr.Body.String())
	}
	if calls := f.upstream.CallsTo("POST"); len(calls) != 0 {
		t.Fatalf("expected no upstream post, got %v", calls)
	}
	if rr.Header().Get(htmx.TriggerHeader) != "" {
		t.Fatal("no event expected on validation failure")
	}
}

func TestSign_ForwardsHoneypotVerbatim(t *testing.T) {
	f := newFixture(t)
	rr := f.do(formRequest(http.MethodPost, "/petition/save_the_park/sign", url.Values{
		"name": {"Ruth"},
		"hp":   {"i am a bot"},
	}, true))

	if got := rr.Header().Get(htmx.TriggerHeader); got != htmx.EventSignatureRecorded {
		t.Fatalf("HX-Trigger = %q", got)
	}
	var sig contracts.Signature
	if err := json.Unmarshal(f.upstream.Body("/api/save_the_park/sign"), &sig); err != nil {
		t.Fatalf("decode forwarded signature: %v", err)
	}
	want := contracts.Signature{Name: "Ruth", HP: "i am a bot"}
	if diff := cmp.Diff(want, sig); diff != "" {
		t.Fatalf("signature mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(rr.Body.String(), "✓ Signature Recorded") {
		t.Fatalf("expected confirmation:\n%s", rr.Body.String())
	}
}

func TestSign_NoScriptPostLinksBackToThePetition(t *testing.T) {
	f := newFixture(t)
	rr := f.do(formRequest(http.MethodPost, "/petition/save_the_park/sign", url.Values{"name": {"Ruth"}}, false))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `href="/lang/ko?next=%2Fpetition%2Fsave_the_park"`) {
		t.Fatalf("language selector must point at the petition:\n%s", body)
	}
	if !strings.Contains(body, `hreflang="ko" href="/ko/petition/save_the_park"`) {
		t.Fatalf("alternate link must point at the petition:\n%s", body)
	}
	if strings.Contains(body, "%2Fsign") || strings.Contains(body, `href="/ko/petition/save_the_park/sign"`) {
		t.Fatalf("shell must not link to the post target:\n%s", body)
	}
}

func TestPage_RenderFailureIsServerError(t *testing.T) {
	f := newFixture(t)
	failing := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "<!doctype html><html>")
		return errors.New("template broke")
	})
	rr := httptest.NewRecorder()
	f.h.page(rr, httptest.NewRequest(http.MethodGet, "/", nil), failing)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<!doctype") {
		t.Fatalf("partial page must not leak:\n%s", rr.Body.String())
	}

	rr = f.do(httptest.NewRequest(http.MethodGet, "/petition/p", nil))
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestCountFragment(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/fragments/petition/p/count", nil))
	if !strings.Contains(rr.Body.String(), ">42</div>") {
		t.Fatalf("expected 42:\n%s", rr.Body.String())
	}

	f.upstream.set(func(u *upstream) { u.count = "12345" })
	rr = f.do(httptest.NewRequest(http.MethodGet, "/fragments/petition/p/count", nil))
	if !strings.Contains(rr.Body.String(), "12,345") {
		t.Fatalf("expected grouped digits:\n%s", rr.Body.String())
	}

	f.upstream.set(func(u *upstream) { u.count = "" })
	rr = f.do(httptest.NewRequest(http.MethodGet, "/fragments/petition/p/count", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "animate-pulse") || !strings.Contains(body, "every 20s") {
		t.Fatalf("failed count must keep polling with a placeholder:\n%s", body)
	}
}

func TestPetitionPage_DefaultIDAndMetadata(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/petition", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "<title>Save the Park</title>") {
		t.Fatalf("expected petition title:\n%s", body)
	}
	if calls := f.upstream.CallsTo("GET /api/default/"); len(calls) != 2 {
		t.Fatalf("expected info and count for the default id, got %v", f.upstream.Calls())
	}
}

func TestWall_EmptyState(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No prayers yet on this wall.") {
		t.Fatalf("expected empty state:\n%s", body)
	}
	if !strings.Contains(body, "1,200") {
		t.Fatalf("expected stats with separators:\n%s", body)
	}
}

func TestWall_MixedDateFormatsStillRender(t *testing.T) {
	f := newFixture(t)
	f.upstream.set(func(u *upstream) {
		u.prayers = `[
			{"id":1,"type":"lament","text":"first burden","created_at":"2025-03-01T10:00:00Z","amen_count":0},
			{"id":2,"type":"lament","text":"second burden","created_at":"2025-03-02 10:00:00","amen_count":0},
			{"id":3,"type":"lament","text":"third burden","created_at":"around noon","amen_count":0}
		]`
	})
	body := f.do(httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	if strings.Contains(body, "could not be loaded") {
		t.Fatalf("one odd timestamp must not fail the wall:\n%s", body)
	}
	for _, want := range []string{"first burden", "Mar 1, 2025", "second burden", "Mar 2, 2025", "third burden", "around noon"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
}

func TestFeedFragment_FilterChangeFetchesOnce(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/fragments/wall/feed?type=lament", nil)
	req.Header.Set(htmx.RequestHeader, "true")
	rr := f.do(req)

	lists := f.upstream.CallsTo("GET /api/prayers")
	if diff := cmp.Diff([]string{"GET /api/prayers?limit=50&type=lament"}, lists); diff != "" {
		t.Fatalf("list calls mismatch (-want +got):\n%s", diff)
	}
	if stats := f.upstream.CallsTo("GET /api/prayer-stats"); len(stats) != 1 {
		t.Fatalf("expected one stats call, got %v", stats)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="wall-feed"`) || !strings.Contains(body, `hx-swap-oob="true"`) {
		t.Fatalf("expected feed and out-of-band stats:\n%s", body)
	}
	if !strings.Contains(body, `data-state="loaded"`) {
		t.Fatalf("expected a loaded feed:\n%s", body)
	}
	// Choosing the active tab again has nothing to send.
	if strings.Contains(body, `hx-get="/fragments/wall/feed?type=lament" hx-target`) {
		t.Fatalf("active filter must not re-fetch:\n%s", body)
	}
}

func TestFeedFragment_UnknownFilterIsAll(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/fragments/wall/feed?type=psalm", nil))
	lists := f.upstream.CallsTo("GET /api/prayers")
	if len(lists) != 1 || !strings.HasSuffix(lists[0], "type=all") {
		t.Fatalf("unexpected list calls %v", lists)
	}
}

func TestAmen(t *testing.T) {
	f := newFixture(t)

	rr := f.do(formRequest(http.MethodPost, "/wall/amen/3", url.Values{"count": {"4"}}, true))
	if !strings.Contains(rr.Body.String(), "(5)") {
		t.Fatalf("expected patched count:\n%s", rr.Body.String())
	}
	// Only the one button is swapped, the rest of the feed stays as rendered.
	if body := rr.Body.String(); !strings.HasPrefix(body, `<button`) || !strings.Contains(body, `id="amen-3"`) || strings.Contains(body, "wall-feed") {
		t.Fatalf("expected a lone amen button:\n%s", body)
	}
	if lists := f.upstream.CallsTo("GET /api/prayers"); len(lists) != 0 {
		t.Fatalf("amen must not reload the feed, got %v", lists)
	}
	if got := rr.Header().Get(htmx.TriggerHeader); got != htmx.EventStatsChanged {
		t.Fatalf("HX-Trigger = %q", got)
	}

	f.upstream.set(func(u *upstream) { u.amenStatus = http.StatusConflict })
	rr = f.do(formRequest(http.MethodPost, "/wall/amen/3", url.Values{"count": {"5"}}, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("duplicate amen must not fail, status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "(5)") {
		t.Fatalf("count must stay unchanged:\n%s", rr.Body.String())
	}
	if rr.Header().Get(htmx.TriggerHeader) != "" {
		t.Fatal("duplicate amen must not refresh stats")
	}

	rr = f.do(formRequest(http.MethodPost, "/wall/amen/abc", nil, true))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestPray(t *testing.T) {
	f := newFixture(t)

	rr := f.do(formRequest(http.MethodPost, "/wall/pray", url.Values{"type": {"lament"}, "text": {" "}}, true))
	if !strings.Contains(rr.Body.String(), "Please write your prayer") || len(f.upstream.CallsTo("POST")) != 0 {
		t.Fatalf("blank prayer must be rejected locally:\n%s", rr.Body.String())
	}

	rr = f.do(formRequest(http.MethodPost, "/wall/pray", url.Values{
		"type": {"lament"},
		"text": {"how long, O Lord"},
		"hp":   {""},
	}, true))
	if got := rr.Header().Get(htmx.TriggerHeader); got != htmx.EventPrayersChanged {
		t.Fatalf("HX-Trigger = %q", got)
	}
	if strings.Contains(rr.Body.String(), "<form") || !strings.Contains(rr.Body.String(), "laid upon the wall") {
		t.Fatalf("form must collapse with confirmation:\n%s", rr.Body.String())
	}
	var sub contracts.PrayerSubmission
	if err := json.Unmarshal(f.upstream.Body("/api/pray"), &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Type != "lament" || sub.Text != "how long, O Lord" || sub.Author != "" {
		t.Fatalf("unexpected submission %+v", sub)
	}
}

func TestBurdenFragments(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/fragments/wall/burden", nil))
	if !strings.Contains(rr.Body.String(), "load delay:2000ms") {
		t.Fatalf("expected configured delay:\n%s", rr.Body.String())
	}
	rr = f.do(httptest.NewRequest(http.MethodGet, "/fragments/wall/form", nil))
	if !strings.Contains(rr.Body.String(), `name="text"`) {
		t.Fatalf("expected open form:\n%s", rr.Body.String())
	}
	rr = f.do(httptest.NewRequest(http.MethodGet, "/fragments/wall/form/cancel", nil))
	if strings.Contains(rr.Body.String(), "<form") {
		t.Fatalf("cancel must collapse the form:\n%s", rr.Body.String())
	}
}

func TestLanguageSwitchAndRedirect(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/lang/ko?next="+url.QueryEscape("/petition/p?ref=x"), nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/ko/petition/p?ref=x" {
		t.Fatalf("Location = %q", loc)
	}
	if v, ok := cookieValue(rr, locale.CookieName); !ok || v != "ko" {
		t.Fatalf("locale cookie = %q, %v", v, ok)
	}
	vid, ok := cookieValue(rr, VisitorCookieName)
	if !ok || vid == "" {
		t.Fatal("expected a visitor cookie")
	}

	// cookie
	req := httptest.NewRequest(http.MethodGet, "/petition/p", nil)
	req.AddCookie(&http.Cookie{Name: locale.CookieName, Value: "ko"})
	rr = f.do(req)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/ko/petition/p" {
		t.Fatalf("expected redirect to preferred locale, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	// stored preference only
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: vid})
	rr = f.do(req)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/ko" {
		t.Fatalf("expected redirect from stored preference, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	// fragments are never redirected
	req = httptest.NewRequest(http.MethodGet, "/fragments/petition/p/count", nil)
	req.AddCookie(&http.Cookie{Name: locale.CookieName, Value: "ko"})
	if rr = f.do(req); rr.Code != http.StatusOK {
		t.Fatalf("fragment status = %d", rr.Code)
	}

	rr = f.do(httptest.NewRequest(http.MethodGet, "/he/petition/p", nil))
	if !strings.Contains(rr.Body.String(), `<html lang="he" dir="rtl">`) {
		t.Fatalf("expected rtl page:\n%s", rr.Body.String()[:200])
	}
}

func TestLanguageSwitch_RejectsForeignNext(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/lang/ja?next="+url.QueryEscape("//evil.example"), nil))
	if loc := rr.Header().Get("Location"); loc != "/ja" {
		t.Fatalf("Location = %q", loc)
	}
	rr = f.do(httptest.NewRequest(http.MethodGet, "/lang/xx", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPetitionFromPrayer_ReadOnce(t *testing.T) {
	f := newFixture(t)

	rr := f.do(formRequest(http.MethodPost, "/wall/petition-from/3", url.Values{"text": {"heal the land"}, "type": {"lament"}}, true))
	if got := rr.Header().Get(htmx.RedirectHeader); got != "/auth/login?next=%2F" {
		t.Fatalf("anonymous visitor must sign in, HX-Redirect = %q", got)
	}

	req := formRequest(http.MethodPost, "/ko/wall/petition-from/3", url.Values{"text": {"heal the land"}, "type": {"lament"}}, true)
	req.AddCookie(f.sessionCookie(t))
	rr = f.do(req)
	if got := rr.Header().Get(htmx.RedirectHeader); got != "/ko/petition" {
		t.Fatalf("HX-Redirect = %q", got)
	}
	vid, ok := cookieValue(rr, VisitorCookieName)
	if !ok {
		t.Fatal("expected a visitor cookie")
	}

	first := httptest.NewRequest(http.MethodGet, "/ko/petition", nil)
	first.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: vid})
	body := f.do(first).Body.String()
	if !strings.Contains(body, "Creating Petition from Prayer") || !strings.Contains(body, "heal the land") {
		t.Fatalf("expected handoff banner:\n%s", body)
	}

	again := httptest.NewRequest(http.MethodGet, "/ko/petition", nil)
	again.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: vid})
	if body := f.do(again).Body.String(); strings.Contains(body, "Creating Petition from Prayer") {
		t.Fatal("second read must not find the handoff")
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if !strings.Contains(rr.Body.String(), "Sign in with GitHub") {
		t.Fatalf("expected sign-in panel:\n%s", rr.Body.String())
	}

	rr = f.do(formRequest(http.MethodPost, "/dashboard/petitions", url.Values{"title": {"x"}}, false))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	req := formRequest(http.MethodPost, "/dashboard/petitions", url.Values{"title": {""}}, false)
	req.AddCookie(f.sessionCookie(t))
	body := f.do(req).Body.String()
	if !strings.Contains(body, `href="/lang/ko?next=%2Fdashboard"`) || strings.Contains(body, "%2Fdashboard%2Fpetitions") {
		t.Fatalf("no-script create must link back to the dashboard:\n%s", body)
	}

	req = formRequest(http.MethodPost, "/dashboard/petitions", url.Values{
		"title":       {"Save the Park"},
		"link_id":     {"save_the_park"},
		"admin_token": {"s3cret"},
	}, true)
	req.AddCookie(f.sessionCookie(t))
	rr = f.do(req)
	if !strings.Contains(rr.Body.String(), "Petition created successfully! ID: 77") {
		t.Fatalf("expected success message:\n%s", rr.Body.String())
	}
	if got := f.upstream.Header("/api/petitions").Get(apiclient.AdminTokenHeader); got != "s3cret" {
		t.Fatalf("admin token header = %q", got)
	}
}

func TestLoginAndCallbackState(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/auth/login?next=/dashboard", nil))
	if rr.Code != http.StatusFound || !strings.Contains(rr.Header().Get("Location"), "github.com/login/oauth/authorize") {
		t.Fatalf("unexpected login redirect %d %q", rr.Code, rr.Header().Get("Location"))
	}
	state, ok := cookieValue(rr, oauthStateCookieName)
	if !ok || state == "" {
		t.Fatal("expected a state cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: state})
	if rr = f.do(req); rr.Code != http.StatusBadRequest {
		t.Fatalf("state mismatch status = %d", rr.Code)
	}

	rr = f.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d", rr.Code)
	}
	if v, ok := cookieValue(rr, auth.SessionCookieName); !ok || v != "" {
		t.Fatal("logout must clear the session cookie")
	}
}

func TestLoginDisabled(t *testing.T) {
	f := newFixture(t)
	f.h.Identity = nil
	router := f.h.Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestWallRedirect(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/ja/wall", nil))
	if !strings.Contains(rr.Body.String(), `content="0; url=/ja"`) {
		t.Fatalf("expected refresh to the localized home:\n%s", rr.Body.String())
	}
}

func TestInfraEndpoints(t *testing.T) {
	f := newFixture(t)
	if rr := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Body.String() != "ok" {
		t.Fatalf("healthz = %q", rr.Body.String())
	}
	f.h.Ready = func(_ context.Context) error { return errors.New("nats is not connected") }
	if rr := f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d", rr.Code)
	}
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	rr := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `lamentwall_http_requests_total{route="/",method="GET",status="200",htmx="false"}`) {
		t.Fatalf("expected request metric:\n%s", rr.Body.String())
	}
	if rr := f.do(httptest.NewRequest(http.MethodGet, "/static/styles.css", nil)); rr.Code != http.StatusOK {
		t.Fatalf("static status = %d", rr.Code)
	}
}
