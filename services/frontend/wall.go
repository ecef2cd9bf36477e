package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
	"github.com/yellowbridge/lamentwall/internal/app/wall"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"github.com/yellowbridge/lamentwall/internal/platform/htmx"
)

// DateLayout formats prayer dates as "Jan 2, 2006".
const DateLayout = "Jan 2, 2006"

type WallView struct {
	Shell  Shell
	Feed   *wall.Feed
	Burden wall.BurdenState
}

type prayerStyle struct {
	class string
	icon  string
}

var prayerStyles = map[string]prayerStyle{
	contracts.PrayerPetition:     {"border-amber-400 bg-amber-50", "🙏"},
	contracts.PrayerThanksgiving: {"border-emerald-400 bg-emerald-50", "✨"},
	contracts.PrayerLament:       {"border-purple-400 bg-purple-50", "💧"},
	contracts.PrayerIntercession: {"border-blue-400 bg-blue-50", "🕊️"},
}

// PrayerIcon returns the type icon, or a rosary for unknown types.
func PrayerIcon(prayerType string) string {
	if s, ok := prayerStyles[prayerType]; ok {
		return s.icon
	}
	return "📿"
}

// PrayerColor returns the card border and background classes.
func PrayerColor(prayerType string) string {
	if s, ok := prayerStyles[prayerType]; ok {
		return s.class
	}
	return "border-stone-400 bg-stone-50"
}

// AuthorLine is "— author, country", or "" when both are absent.
func AuthorLine(p contracts.Prayer) string {
	author := strings.TrimSpace(p.Author)
	country := strings.TrimSpace(p.Country)
	if author == "" && country == "" {
		return ""
	}
	if author == "" {
		author = "Anonymous"
	}
	line := "— " + author
	if country != "" {
		line += ", " + country
	}
	return line
}

func filterLabel(filter string) string {
	if filter == wall.FilterAll {
		return "📿 All"
	}
	return PrayerIcon(filter) + " " + strings.ToUpper(filter[:1]) + filter[1:]
}

// WallPage is the prayer wall home page.
func WallPage(v WallView) templ.Component {
	shell := v.Shell
	shell.Title = "Lamentation Wall - Place Your Prayer Requests"
	shell.Description = "A sacred space to pour out your heart before God. Submit prayer requests, petitions, thanksgiving, and intercessions."
	shell.OGTitle = "Lamentation Wall - Prayer Request Platform"
	shell.OGDescription = "Share your prayers and support others in their spiritual journey"
	shell.BodyClass = "bg-gradient-to-b from-amber-50 via-stone-100 to-amber-50"

	return page(shell, component(func(ctx context.Context, m *markup) {
		m.raw(`<div class="container mx-auto px-4 py-12 max-w-6xl">`)
		m.raw(`<header class="text-center mb-12">`)
		m.raw(`<h1 class="text-5xl font-serif text-stone-800 mb-4">The Lamentation Wall</h1>`)
		m.raw(`<p class="text-xl text-stone-600 mb-6 italic">A sacred space to pour out your heart before God</p>`)
		var stats *contracts.PrayerStats
		if v.Feed != nil {
			stats = v.Feed.Stats
		}
		m.child(ctx, WallStats(stats))
		m.raw(`</header>`)
		m.child(ctx, BurdenSlot(v.Burden))
		m.child(ctx, WallFeed(v.Feed))
		m.raw(`</div>`)
	}))
}

// WallStats shows totals and re-fetches itself after an amen. Feed reloads
// replace it out of band. Nothing is shown until stats have loaded once.
func WallStats(stats *contracts.PrayerStats) templ.Component {
	return wallStats(stats, false)
}

func wallStats(stats *contracts.PrayerStats, oob bool) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div id="wall-stats" hx-swap="outerHTML"`)
		if oob {
			m.raw(` hx-swap-oob="true"`)
		}
		m.attr("hx-get", href(ctx, "/fragments/wall/stats"))
		m.attr("hx-trigger", htmx.EventStatsChanged+" from:body")
		m.raw(`>`)
		if stats != nil {
			code := locale.FromContext(ctx)
			m.raw(`<div class="flex justify-center gap-8 text-stone-700 mb-6">`)
			m.raw(`<div class="text-center"><div class="text-3xl font-bold text-amber-700" data-total-prayers>`)
			m.text(locale.FormatCount(code, int64(stats.TotalPrayers)))
			m.raw(`</div><div class="text-sm">Prayers</div></div>`)
			m.raw(`<div class="text-center"><div class="text-3xl font-bold text-amber-700" data-total-amens>`)
			m.text(locale.FormatCount(code, int64(stats.TotalAmens)))
			m.raw(`</div><div class="text-sm">Amens</div></div></div>`)
		}
		m.raw(`</div>`)
	})
}

// WallFeedUpdate is the response to a filter change or reload: the feed plus
// the stats fetched alongside it, swapped out of band.
func WallFeedUpdate(feed *wall.Feed) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.child(ctx, WallFeed(feed))
		if feed != nil && feed.Stats != nil {
			m.child(ctx, wallStats(feed.Stats, true))
		}
	})
}

// WallFeed renders the filter tabs and the prayer grid. The active tab has no
// request attached, so choosing it again does nothing. An idle feed fetches
// itself once it is on the page.
func WallFeed(feed *wall.Feed) templ.Component {
	if feed == nil {
		feed = wall.NewFeed()
	}
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<section id="wall-feed" hx-swap="outerHTML"`)
		m.attr("hx-get", href(ctx, "/fragments/wall/feed?type="+url.QueryEscape(feed.Filter)))
		trigger := htmx.EventPrayersChanged + " from:body"
		if feed.State == wall.StateIdle {
			trigger = "load, " + trigger
		}
		m.attr("hx-trigger", trigger)
		m.attr("data-state", string(feed.State))
		m.raw(`>`)

		m.raw(`<nav class="flex justify-center gap-4 mb-8 flex-wrap">`)
		for _, filter := range wall.Filters {
			active := filter == feed.Filter
			m.raw(`<button type="button"`)
			class := "px-6 py-2 rounded-full font-semibold transition-all bg-white text-stone-700 hover:bg-stone-100 border-2 border-stone-300"
			if active {
				class = "px-6 py-2 rounded-full font-semibold transition-all bg-amber-600 text-white shadow-lg scale-105"
			}
			m.attr("class", class)
			if active {
				m.raw(` aria-pressed="true"`)
			} else {
				m.attr("hx-get", href(ctx, "/fragments/wall/feed?type="+url.QueryEscape(filter)))
				m.raw(` hx-target="#wall-feed" hx-swap="outerHTML" hx-indicator="#wall-loading"`)
			}
			m.raw(`>`)
			m.text(filterLabel(filter))
			m.raw(`</button>`)
		}
		m.raw(`</nav>`)
		m.raw(`<div id="wall-loading" class="lw-indicator text-center py-12 text-stone-600">Loading prayers...</div>`)

		switch {
		case feed.State == wall.StateIdle:
			m.raw(`<div class="text-center py-12 text-stone-600" aria-busy="true">Loading prayers...</div>`)
		case feed.State == wall.StateError:
			m.raw(`<div class="text-center py-12 text-stone-600" role="alert"><p class="text-xl mb-4">The wall could not be loaded.</p>`)
			m.raw(`<button type="button" class="text-amber-700 underline" hx-target="#wall-feed" hx-swap="outerHTML"`)
			m.attr("hx-get", href(ctx, "/fragments/wall/feed?type="+url.QueryEscape(feed.Filter)))
			m.raw(`>Try again</button></div>`)
		case feed.Empty():
			m.raw(`<div class="text-center py-12 text-stone-600" data-empty-wall>`)
			m.raw(`<p class="text-xl mb-4">No prayers yet on this wall.</p>`)
			m.raw(`<p class="text-lg">Be the first to lay your burden down.</p></div>`)
		default:
			m.raw(`<div class="grid grid-cols-1 md:grid-cols-2 lg:grid-cols-3 gap-6">`)
			for i, p := range feed.Prayers {
				m.child(ctx, PrayerCard(p, i))
			}
			m.raw(`</div>`)
		}
		m.raw(`</section>`)
	})
}

// PrayerCard renders one prayer with its amen and petition actions.
func PrayerCard(p contracts.Prayer, index int) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<article`)
		m.attr("id", "prayer-"+strconv.FormatInt(p.ID, 10))
		m.attr("class", PrayerColor(p.Type)+" border-s-4 rounded-lg p-6 shadow-lg hover:shadow-xl transition-all animate-fade-in")
		m.attr("style", fmt.Sprintf("animation-delay: %.1fs", float64(index)*0.1))
		m.raw(`><div class="flex items-center justify-between mb-3"><span class="text-2xl">`)
		m.text(PrayerIcon(p.Type))
		m.raw(`</span><span class="text-xs text-stone-500 uppercase tracking-wide font-semibold">`)
		m.text(p.Type)
		m.raw(`</span></div><p class="text-stone-800 mb-4 font-serif leading-relaxed whitespace-pre-line">`)
		m.text(p.Text)
		m.raw(`</p>`)
		if line := AuthorLine(p); line != "" {
			m.raw(`<div class="text-sm text-stone-600 mb-3 italic">`)
			m.text(line)
			m.raw(`</div>`)
		}
		m.raw(`<time class="block text-xs text-stone-500 mb-3"`)
		if p.CreatedAt.Valid() {
			m.attr("datetime", p.CreatedAt.Time.Format(time.RFC3339))
		}
		m.raw(`>`)
		m.text(p.CreatedAt.Format(DateLayout))
		m.raw(`</time><div class="flex gap-2">`)
		m.child(ctx, AmenButton(p.ID, p.AmenCount))
		m.raw(`<button type="button" class="flex-1 bg-gradient-to-r from-blue-600 to-blue-700 hover:from-blue-700 hover:to-blue-800 text-white px-4 py-2 rounded-lg font-semibold border-2 border-blue-600 flex items-center justify-center gap-2"`)
		m.attr("hx-post", href(ctx, "/wall/petition-from/"+strconv.FormatInt(p.ID, 10)))
		vals, _ := json.Marshal(map[string]string{"text": p.Text, "type": p.Type})
		m.attr("hx-vals", string(vals))
		m.raw(`><span>📝</span><span>Petition</span></button>`)
		m.raw(`</div></article>`)
	})
}

// AmenButton swaps itself with the updated count.
func AmenButton(prayerID int64, count int) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<button type="button" class="flex-1 bg-white hover:bg-amber-100 text-stone-700 px-4 py-2 rounded-lg font-semibold border-2 border-stone-300 flex items-center justify-center gap-2" hx-swap="outerHTML" hx-disabled-elt="this"`)
		m.attr("id", "amen-"+strconv.FormatInt(prayerID, 10))
		m.attr("hx-post", href(ctx, "/wall/amen/"+strconv.FormatInt(prayerID, 10)))
		m.attr("hx-vals", `{"count": `+strconv.Itoa(count)+`}`)
		m.raw(`><span>🙏</span><span>Amen</span><span class="text-amber-700" data-amen-count>(`)
		m.raw(strconv.Itoa(count))
		m.raw(`)</span></button>`)
	})
}

// BurdenSlot holds either the "Lay Your Burden Down" button or the open
// submission form.
func BurdenSlot(state wall.BurdenState) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div id="burden-slot">`)
		if state.Open {
			m.child(ctx, BurdenForm(state))
		} else {
			m.raw(`<div class="text-center mb-12">`)
			m.raw(`<button type="button" class="bg-amber-600 hover:bg-amber-700 text-white px-8 py-4 rounded-lg text-lg font-semibold shadow-lg transition-all transform hover:scale-105" hx-target="#burden-slot" hx-swap="outerHTML"`)
			m.attr("hx-get", href(ctx, "/fragments/wall/burden"))
			m.raw(`>🕊️ Lay Your Burden Down</button>`)
			if state.Message != "" {
				m.raw(`<div class="max-w-2xl mx-auto mt-4 p-4 bg-amber-100 border-s-4 border-amber-600 text-stone-800" role="status">`)
				m.text(state.Message)
				m.raw(`</div>`)
			}
			m.raw(`</div>`)
		}
		m.raw(`</div>`)
	})
}

// BurdenInterstitial is the contemplative pause shown before the form. It
// loads the form by itself after delay.
func BurdenInterstitial(delay time.Duration) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div id="burden-slot" hx-target="this" hx-swap="outerHTML"`)
		m.attr("hx-get", href(ctx, "/fragments/wall/form"))
		m.attr("hx-trigger", "load delay:"+strconv.FormatInt(delay.Milliseconds(), 10)+"ms")
		m.raw(`><div class="fixed inset-0 z-50 bg-black/80 flex items-center justify-center animate-fade-in" data-burden-overlay>`)
		m.raw(`<div class="text-center text-white p-8 max-w-2xl">`)
		m.raw(`<p class="text-3xl font-serif mb-4 animate-pulse">&ldquo;Cast all your cares upon Him, for He cares for you.&rdquo;</p>`)
		m.raw(`<p class="text-xl opacity-75">1 Peter 5:7</p></div></div></div>`)
	})
}

const burdenInputClass = "w-full px-4 py-2 border-2 border-stone-300 rounded-lg focus:border-amber-500 focus:outline-none"

// BurdenForm is the prayer submission form.
func BurdenForm(state wall.BurdenState) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		f := state.Form
		selected := f.Type
		if !contracts.IsPrayerType(selected) {
			selected = contracts.PrayerPetition
		}

		m.raw(`<div class="max-w-2xl mx-auto mb-12 bg-white rounded-lg shadow-2xl p-8 border-4 border-amber-200 animate-fade-in">`)
		m.raw(`<h2 class="text-2xl font-serif text-stone-800 mb-6 text-center">Place Your Prayer Upon the Wall</h2>`)
		m.raw(`<form hx-target="#burden-slot" hx-swap="outerHTML" hx-disabled-elt="find fieldset" method="post"`)
		m.attr("hx-post", href(ctx, "/wall/pray"))
		m.url("action", href(ctx, "/wall/pray"))
		m.raw(`><fieldset>`)

		m.raw(`<div class="mb-4"><label for="prayer-type" class="block text-stone-700 font-semibold mb-2">Type of Prayer</label>`)
		m.raw(`<select id="prayer-type" name="type"`)
		m.attr("class", burdenInputClass)
		m.raw(`>`)
		for _, t := range contracts.PrayerTypes {
			m.raw(`<option`)
			m.attr("value", t)
			if t == selected {
				m.raw(` selected`)
			}
			m.raw(`>`)
			m.text(filterLabel(t))
			m.raw(`</option>`)
		}
		m.raw(`</select></div>`)

		m.raw(`<div class="mb-4"><label for="prayer-text" class="block text-stone-700 font-semibold mb-2">Your Prayer <span class="text-red-500">*</span></label>`)
		m.raw(`<textarea id="prayer-text" name="text" required rows="6" maxlength="`, strconv.Itoa(wall.MaxTextLen), `" placeholder="Pour out your heart before the Lord..."`)
		m.attr("class", "w-full px-4 py-3 border-2 border-stone-300 rounded-lg focus:border-amber-500 focus:outline-none font-serif")
		m.raw(` oninput="document.getElementById('prayer-text-count').textContent = this.value.length">`)
		m.text(f.Text)
		m.raw(`</textarea><div class="text-end text-sm text-stone-500 mt-1"><span id="prayer-text-count">`)
		m.raw(strconv.Itoa(f.TextLen()))
		m.raw(`</span> / `, strconv.Itoa(wall.MaxTextLen), `</div></div>`)

		m.raw(`<div class="grid grid-cols-1 md:grid-cols-2 gap-4 mb-4">`)
		m.raw(`<div><label for="prayer-author" class="block text-stone-700 mb-2">Name (optional)</label>`)
		m.raw(`<input type="text" id="prayer-author" name="author" maxlength="`, strconv.Itoa(wall.MaxAuthorLen), `" placeholder="Anonymous"`)
		m.attr("class", burdenInputClass)
		m.attr("value", f.Author)
		m.raw(`></div>`)
		m.raw(`<div><label for="prayer-country" class="block text-stone-700 mb-2">Country (optional)</label>`)
		m.raw(`<input type="text" id="prayer-country" name="country" maxlength="`, strconv.Itoa(wall.MaxCountryLen), `" placeholder="Your location"`)
		m.attr("class", burdenInputClass)
		m.attr("value", f.Country)
		m.raw(`></div></div>`)

		m.raw(`<input type="text" name="hp" class="hidden" tabindex="-1" autocomplete="off" aria-hidden="true">`)

		m.raw(`<div class="flex gap-4">`)
		m.raw(`<button type="submit" class="flex-1 bg-amber-600 hover:bg-amber-700 text-white px-6 py-3 rounded-lg font-semibold disabled:bg-stone-400 disabled:cursor-not-allowed transition-colors">`)
		m.raw(`<span class="lw-idle">🕊️ Place on Wall</span><span class="lw-busy">Submitting...</span></button>`)
		m.raw(`<button type="button" class="px-6 py-3 border-2 border-stone-400 text-stone-700 rounded-lg hover:bg-stone-100 transition-colors" hx-target="#burden-slot" hx-swap="outerHTML"`)
		m.attr("hx-get", href(ctx, "/fragments/wall/form/cancel"))
		m.raw(`>Cancel</button></div>`)
		m.raw(`</fieldset>`)
		if state.Message != "" {
			m.raw(`<div class="mt-4 p-4 bg-amber-100 border-s-4 border-amber-600 text-stone-800" role="status">`)
			m.text(state.Message)
			m.raw(`</div>`)
		}
		m.raw(`</form></div>`)
	})
}
