package frontend

import (
	"context"
	"net/url"

	"github.com/a-h/templ"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
)

const (
	htmxScript     = "https://unpkg.com/htmx.org@2.0.4"
	tailwindScript = "https://cdn.tailwindcss.com"
)

// Shell is the document head and chrome shared by every page.
type Shell struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	// Path is the current path and query without a locale segment; the
	// language selector rewrites it.
	Path      string
	BodyClass string
}

// Layout is the full HTML document around its children.
func Layout(shell Shell) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		body := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)
		code := locale.FromContext(ctx)
		ogTitle := shell.OGTitle
		if ogTitle == "" {
			ogTitle = shell.Title
		}
		ogDescription := shell.OGDescription
		if ogDescription == "" {
			ogDescription = shell.Description
		}

		m.raw(`<!doctype html><html`)
		m.attr("lang", code)
		m.attr("dir", locale.Dir(code))
		m.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		m.raw(`<title>`)
		m.text(shell.Title)
		m.raw(`</title>`)
		if shell.Description != "" {
			m.raw(`<meta name="description"`)
			m.attr("content", shell.Description)
			m.raw(`>`)
		}
		m.raw(`<meta property="og:title"`)
		m.attr("content", ogTitle)
		m.raw(`>`)
		if ogDescription != "" {
			m.raw(`<meta property="og:description"`)
			m.attr("content", ogDescription)
			m.raw(`>`)
		}
		m.raw(`<meta property="og:type" content="website"><meta name="twitter:card" content="summary_large_image">`)
		for _, l := range locale.Languages {
			m.raw(`<link rel="alternate"`)
			m.attr("hreflang", l.Code)
			m.url("href", locale.Href(l.Code, shell.Path))
			m.raw(`>`)
		}
		m.raw(`<script src="`, tailwindScript, `"></script>`)
		m.raw(`<script src="`, htmxScript, `" defer></script>`)
		m.raw(`<link rel="stylesheet"`)
		m.url("href", AssetURL("styles.css"))
		m.raw(`>`)
		m.raw(`</head><body`)
		m.classes("min-h-screen", templ.KV(shell.BodyClass, shell.BodyClass != ""))
		m.raw(`>`)
		m.raw(`<div class="fixed top-4 end-4 z-40">`)
		m.child(ctx, LanguageSelector(shell.Path))
		m.raw(`</div>`)
		m.child(ctx, body)
		m.raw(`</body></html>`)
	})
}

// LanguageSelector shows the active locale and links to the same page in
// every other locale.
func LanguageSelector(path string) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		active := locale.Get(locale.FromContext(ctx))
		if path == "" {
			path = "/"
		}

		m.raw(`<details class="relative lw-language">`)
		m.raw(`<summary class="flex items-center gap-2 bg-white hover:bg-gray-50 px-4 py-2 rounded-lg shadow-md border border-gray-200 cursor-pointer list-none" aria-label="Select language">`)
		m.raw(`<span class="text-2xl">`)
		m.text(active.Flag)
		m.raw(`</span><span class="hidden sm:inline font-medium text-gray-700">`)
		m.text(active.NativeName)
		m.raw(`</span></summary>`)
		m.raw(`<div class="absolute top-full mt-2 end-0 bg-white rounded-lg shadow-xl border border-gray-200 py-2 min-w-[200px] z-50">`)
		for _, l := range locale.Languages {
			isActive := l.Code == active.Code
			m.raw(`<a`)
			m.url("href", "/lang/"+l.Code+"?next="+url.QueryEscape(path))
			m.attr("hreflang", l.Code)
			m.classes("w-full text-start px-4 py-3 hover:bg-amber-50 flex items-center gap-3", templ.KV("bg-amber-100 font-semibold", isActive))
			if isActive {
				m.raw(` aria-current="true"`)
			}
			m.raw(`><span class="text-2xl">`)
			m.text(l.Flag)
			m.raw(`</span><span class="flex-1"><span class="block font-medium text-gray-800">`)
			m.text(l.NativeName)
			m.raw(`</span><span class="block text-xs text-gray-500">`)
			m.text(l.Name)
			m.raw(`</span></span>`)
			if isActive {
				m.raw(`<span class="text-amber-600">✓</span>`)
			}
			m.raw(`</a>`)
		}
		m.raw(`</div></details>`)
	})
}

// RedirectPage is a transient spinner that forwards to target.
func RedirectPage(target string) templ.Component {
	body := component(func(_ context.Context, m *markup) {
		m.raw(`<div class="min-h-screen flex items-center justify-center"><div class="text-center">`)
		m.raw(`<div class="animate-spin rounded-full h-12 w-12 border-b-2 border-amber-600 mx-auto mb-4"></div>`)
		m.raw(`<p class="text-stone-600">Redirecting...</p>`)
		m.raw(`<p class="mt-2"><a class="text-amber-700 underline"`)
		m.url("href", target)
		m.raw(`>Continue</a></p></div></div>`)
	})
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<!doctype html><html`)
		m.attr("lang", locale.FromContext(ctx))
		m.raw(`><head><meta charset="utf-8"><meta http-equiv="refresh"`)
		m.attr("content", "0; url="+string(templ.URL(target)))
		m.raw(`><title>Redirecting...</title><script src="`, tailwindScript, `"></script></head><body>`)
		m.child(ctx, body)
		m.raw(`</body></html>`)
	})
}
