package frontend

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/yellowbridge/lamentwall/internal/app/handoff"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
	"github.com/yellowbridge/lamentwall/internal/app/petition"
	"github.com/yellowbridge/lamentwall/internal/platform/htmx"
)

// PetitionView is everything the petition page renders.
type PetitionView struct {
	Shell   Shell
	Page    petition.Page
	Handoff *handoff.Context
	Form    petition.FormState
	// ShareURL is the absolute URL offered by the share links.
	ShareURL string
	Refresh  time.Duration
}

// SignatureCounter renders the count with locale separators, or an animated
// placeholder while loading.
func SignatureCounter(count int64, loading bool) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div class="bg-gradient-to-r from-blue-50 to-cyan-50 border border-blue-200 rounded-lg p-4 mb-6"><div class="text-center">`)
		m.raw(`<div class="text-sm font-medium text-gray-600 mb-1">Total Signatures Collected</div>`)
		m.raw(`<div class="text-4xl font-bold text-gray-900" data-signature-count>`)
		if loading {
			m.raw(`<span class="animate-pulse">...</span>`)
		} else {
			m.text(locale.FormatCount(locale.FromContext(ctx), count))
		}
		m.raw(`</div></div></div>`)
	})
}

// CounterPanel polls the count fragment on an interval and whenever a
// signature is recorded.
func CounterPanel(petitionID string, count int64, loading bool, refresh time.Duration) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div id="signature-counter" hx-swap="outerHTML"`)
		m.attr("hx-get", href(ctx, "/fragments/petition/"+url.PathEscape(petitionID)+"/count"))
		m.attr("hx-trigger", pollTrigger(refresh)+", "+htmx.EventSignatureRecorded+" from:body")
		m.raw(`>`)
		m.child(ctx, SignatureCounter(count, loading))
		m.raw(`</div>`)
	})
}

func pollTrigger(every time.Duration) string {
	secs := int(every / time.Second)
	if secs <= 0 {
		secs = 20
	}
	return "every " + strconv.Itoa(secs) + "s"
}

const inputClass = "w-full px-4 py-2 border border-gray-300 rounded-lg focus:ring-2 focus:ring-blue-500 focus:border-transparent disabled:bg-gray-100 disabled:cursor-not-allowed"

// PetitionForm is the signature form, or the confirmation panel once the
// signature was recorded.
func PetitionForm(petitionID string, state petition.FormState) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		if state.Submitted {
			m.raw(`<div id="petition-form" class="bg-green-50 border border-green-200 rounded-lg p-6 text-center animate-fade-in" role="status">`)
			m.raw(`<div class="text-green-700 text-xl font-semibold mb-2">✓ Signature Recorded</div>`)
			m.raw(`<p class="text-green-600">Thank you for your support. Please share this petition with others.</p>`)
			m.raw(`</div>`)
			return
		}

		f := state.Form
		m.raw(`<form id="petition-form" class="space-y-4 mt-6" hx-swap="outerHTML" hx-disabled-elt="find fieldset"`)
		m.attr("hx-post", href(ctx, "/petition/"+url.PathEscape(petitionID)+"/sign"))
		m.url("action", href(ctx, "/petition/"+url.PathEscape(petitionID)+"/sign"))
		m.raw(` method="post"><fieldset class="space-y-4">`)

		m.raw(`<div><label for="name" class="block text-sm font-medium text-gray-700 mb-1">Your Name <span class="text-red-500">*</span></label>`)
		m.raw(`<input type="text" id="name" name="name" maxlength="`, strconv.Itoa(petition.MaxNameLen), `" placeholder="Full name"`)
		m.attr("class", inputClass)
		m.attr("value", f.Name)
		m.raw(`></div>`)

		m.raw(`<div><label for="email" class="block text-sm font-medium text-gray-700 mb-1">Email <span class="text-gray-500 text-xs">(optional)</span></label>`)
		m.raw(`<input type="email" id="email" name="email" placeholder="your@email.com"`)
		m.attr("class", inputClass)
		m.attr("value", f.Email)
		m.raw(`></div>`)

		m.raw(`<div><label for="country" class="block text-sm font-medium text-gray-700 mb-1">Country <span class="text-gray-500 text-xs">(optional)</span></label>`)
		m.raw(`<input type="text" id="country" name="country" maxlength="`, strconv.Itoa(petition.MaxCountryLen), `" placeholder="Your country"`)
		m.attr("class", inputClass)
		m.attr("value", f.Country)
		m.raw(`></div>`)

		m.raw(`<div><label for="message" class="block text-sm font-medium text-gray-700 mb-1">Message <span class="text-gray-500 text-xs">(optional)</span></label>`)
		m.raw(`<textarea id="message" name="message" rows="3" maxlength="`, strconv.Itoa(petition.MaxMessageLen), `" placeholder="A short message of support"`)
		m.attr("class", inputClass+" resize-none")
		m.raw(`>`)
		m.text(f.Message)
		m.raw(`</textarea></div>`)

		m.raw(`<div class="hidden" aria-hidden="true"><label for="hp">Leave this empty</label>`)
		m.raw(`<input type="text" id="hp" name="hp" tabindex="-1" autocomplete="off"`)
		m.attr("value", f.HP)
		m.raw(`></div>`)

		m.raw(`<button type="submit" class="w-full bg-blue-600 hover:bg-blue-700 text-white font-semibold py-3 px-6 rounded-lg transition-colors disabled:bg-gray-400 disabled:cursor-not-allowed">`)
		m.raw(`<span class="lw-idle">Sign Petition</span><span class="lw-busy">Signing...</span></button>`)
		m.raw(`</fieldset>`)
		statusLine(m, state.Message, string(state.Kind))
		m.raw(`</form>`)
	})
}

func statusLine(m *markup, message, kind string) {
	if message == "" {
		return
	}
	class := "bg-blue-50 text-blue-700"
	switch kind {
	case "success":
		class = "bg-green-50 text-green-700"
	case "error":
		class = "bg-red-50 text-red-700"
	}
	m.raw(`<div role="status" aria-live="polite"`)
	m.attr("class", "text-sm p-3 rounded-lg "+class)
	m.raw(`>`)
	m.text(message)
	m.raw(`</div>`)
}

// PetitionPage is the full petition page, or the not-found state when
// metadata could not be loaded.
func PetitionPage(v PetitionView) templ.Component {
	if !v.Page.Found() {
		shell := v.Shell
		shell.Title = "Petition Not Found"
		return page(shell, component(func(_ context.Context, m *markup) {
			m.raw(`<main class="min-h-screen flex items-center justify-center"><div class="text-center">`)
			m.raw(`<h1 class="text-2xl font-bold text-red-600 mb-4">Petition Not Found</h1>`)
			m.raw(`<p>The requested petition could not be found.</p></div></main>`)
		}))
	}

	info := v.Page.Info
	shell := v.Shell
	shell.Title = info.Title
	shell.Description = info.Description

	return page(shell, component(func(ctx context.Context, m *markup) {
		m.raw(`<main class="min-h-screen flex items-center justify-center p-4 md:p-8 bg-gray-50">`)
		m.raw(`<div class="fixed top-4 start-4 z-40"><a class="bg-white hover:bg-gray-50 text-stone-700 px-4 py-2 rounded-full shadow-lg flex items-center gap-2"`)
		m.url("href", href(ctx, "/"))
		m.raw(`><span aria-hidden="true">←</span><span class="font-semibold">Back to Home</span></a></div>`)
		m.raw(`<div class="max-w-2xl w-full bg-white rounded-xl shadow-lg p-6 md:p-8">`)

		if v.Handoff != nil {
			m.child(ctx, HandoffBanner(*v.Handoff))
		}

		m.raw(`<header class="mb-6"><h1 class="text-3xl md:text-4xl font-bold text-gray-900 mb-3">`)
		if v.Handoff != nil {
			m.raw(`Create Petition for Prayer`)
		} else {
			m.text(info.Title)
		}
		m.raw(`</h1><p class="text-gray-700 text-lg leading-relaxed">`)
		if v.Handoff != nil {
			m.raw(`Fill out the form below to create a formal petition that others can sign in support of this prayer.`)
		} else {
			m.text(info.Description)
		}
		m.raw(`</p></header>`)

		if v.Handoff == nil {
			m.child(ctx, CounterPanel(v.Page.PetitionID, v.Page.Count, !v.Page.CountLoaded, v.Refresh))
		}
		m.child(ctx, PetitionForm(v.Page.PetitionID, v.Form))

		m.raw(`<div class="mt-8 pt-6 border-t border-gray-200">`)
		m.child(ctx, ShareLinks(v.ShareURL, info.Title))
		m.raw(`</div>`)

		m.raw(`<footer class="mt-8 text-center text-sm text-gray-500">`)
		m.raw(`<p>Hosted by JacobYellowBridge. Please sign peacefully, and do not include sensitive personal information.</p>`)
		m.raw(`<p class="mt-2">This petition respects privacy. Email addresses are optional and never shared.</p>`)
		m.raw(`</footer></div></main>`)
	}))
}

// HandoffBanner shows the prayer a petition is being created from.
func HandoffBanner(c handoff.Context) templ.Component {
	return component(func(_ context.Context, m *markup) {
		m.raw(`<div id="prayer-context" class="mb-6 p-4 bg-gradient-to-r from-blue-50 to-purple-50 border-s-4 border-blue-600 rounded-lg">`)
		m.raw(`<div class="flex items-start gap-3"><div class="text-2xl">🙏</div><div class="flex-1">`)
		m.raw(`<h3 class="font-semibold text-blue-900 mb-2">Creating Petition from Prayer</h3>`)
		m.raw(`<p class="text-sm text-blue-800 italic mb-2 font-serif leading-relaxed">&ldquo;`)
		m.text(c.PrayerText)
		m.raw(`&rdquo;</p><p class="text-xs text-blue-700">Type: <span class="font-semibold capitalize">`)
		m.text(c.PrayerType)
		m.raw(`</span></p></div></div>`)
		m.raw(`<div class="mt-3 text-sm text-blue-900">ℹ️ This petition will be associated with the prayer above. `)
		m.raw(`People who sign this petition will be supporting this specific prayer request.</div></div>`)
	})
}

// ShareLinks offers the page on X, Facebook and WhatsApp plus a copy button.
func ShareLinks(shareURL, title string) templ.Component {
	return component(func(_ context.Context, m *markup) {
		encodedURL := url.QueryEscape(shareURL)
		encodedText := url.QueryEscape(strings.TrimSpace(title))
		links := []struct{ label, target, class string }{
			{"Share on X", "https://twitter.com/intent/tweet?url=" + encodedURL + "&text=" + encodedText, "bg-black hover:bg-gray-800"},
			{"Share on Facebook", "https://www.facebook.com/sharer/sharer.php?u=" + encodedURL, "bg-blue-600 hover:bg-blue-700"},
			{"Share on WhatsApp", "https://wa.me/?text=" + url.QueryEscape(strings.TrimSpace(title+" "+shareURL)), "bg-green-600 hover:bg-green-700"},
		}

		m.raw(`<div class="text-center"><p class="text-sm font-medium text-gray-700 mb-3">Share this petition</p><div class="flex flex-wrap justify-center gap-2">`)
		for _, l := range links {
			m.raw(`<a target="_blank" rel="noopener noreferrer"`)
			m.url("href", l.target)
			m.attr("class", "text-white text-sm font-semibold px-4 py-2 rounded-lg "+l.class)
			m.raw(`>`)
			m.text(l.label)
			m.raw(`</a>`)
		}
		m.raw(`<button type="button" class="text-sm font-semibold px-4 py-2 rounded-lg border border-gray-300 hover:bg-gray-100"`)
		m.attr("data-share-url", shareURL)
		m.raw(` onclick="navigator.clipboard.writeText(this.dataset.shareUrl).then(() => { this.textContent = 'Link copied' })">Copy link</button>`)
		m.raw(`</div></div>`)
	})
}
