// Package htmx reads htmx request headers and writes its response headers.
package htmx

import (
	"net/http"
	"strings"
)

const (
	RequestHeader  = "HX-Request"
	TriggerHeader  = "HX-Trigger"
	RedirectHeader = "HX-Redirect"
)

// Client-side events fired through HX-Trigger.
const (
	EventSignatureRecorded = "signature-recorded"
	EventStatsChanged      = "stats-changed"
	EventPrayersChanged    = "prayers-changed"
)

// IsRequest reports whether the request was initiated by htmx.
func IsRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(RequestHeader), "true")
}

// Trigger fires events on the client after the swap. Must be called before
// the body is written.
func Trigger(w http.ResponseWriter, events ...string) {
	if len(events) == 0 {
		return
	}
	existing := w.Header().Get(TriggerHeader)
	joined := strings.Join(events, ", ")
	if existing != "" {
		joined = existing + ", " + joined
	}
	w.Header().Set(TriggerHeader, joined)
}

// Redirect sends the browser to target: a full-page HX-Redirect for htmx
// requests, a 303 otherwise.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsRequest(r) {
		w.Header().Set(RedirectHeader, target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
