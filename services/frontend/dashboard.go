package frontend

import (
	"context"
	"net/url"

	"github.com/a-h/templ"
	"github.com/yellowbridge/lamentwall/internal/app/petition"
	"github.com/yellowbridge/lamentwall/internal/platform/auth"
)

type DashboardView struct {
	Shell Shell
	// Viewer is nil when nobody is signed in.
	Viewer *auth.Claims
	Admin  petition.AdminState
	// SignInEnabled is false when no identity provider is configured.
	SignInEnabled bool
}

// DashboardPage is the admin create-petition page, or a sign-in panel.
func DashboardPage(v DashboardView) templ.Component {
	shell := v.Shell
	shell.Title = "Admin Dashboard - Petition"
	shell.BodyClass = "bg-gray-50"

	if v.Viewer == nil {
		return page(shell, SignInPanel(shell.Path, v.SignInEnabled))
	}

	return page(shell, component(func(ctx context.Context, m *markup) {
		m.raw(`<nav class="bg-white shadow-sm border-b"><div class="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8"><div class="flex justify-between h-16">`)
		m.raw(`<div class="flex items-center"><h1 class="text-xl font-semibold text-gray-900">Admin Dashboard</h1></div>`)
		m.raw(`<div class="flex items-center gap-4 pe-40"><span class="text-sm text-gray-700">Welcome, `)
		m.text(v.Viewer.DisplayName())
		m.raw(`</span><form method="post"`)
		m.url("action", href(ctx, "/auth/logout"))
		m.raw(`><button type="submit" class="text-sm text-gray-500 hover:text-gray-700">Sign out</button></form>`)
		m.raw(`</div></div></div></nav>`)
		m.raw(`<main class="max-w-2xl mx-auto py-8 px-4 sm:px-6 lg:px-8"><div class="bg-white rounded-lg shadow-md p-6">`)
		m.raw(`<h2 class="text-2xl font-bold text-gray-900 mb-6">Create New Petition</h2>`)
		m.child(ctx, AdminForm(v.Admin))
		m.raw(`</div></main>`)
	}))
}

// SignInPanel asks the visitor to sign in with GitHub.
func SignInPanel(next string, enabled bool) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		m.raw(`<div class="min-h-screen flex items-center justify-center bg-gray-50"><div class="max-w-md w-full bg-white rounded-lg shadow-md p-8">`)
		m.raw(`<h1 class="text-2xl font-bold text-center mb-6">Admin Dashboard</h1>`)
		m.raw(`<p class="text-gray-600 text-center mb-6">You need to sign in with GitHub to access the dashboard.</p>`)
		if enabled {
			m.raw(`<a class="block text-center w-full bg-gray-900 hover:bg-gray-800 text-white font-semibold py-3 px-4 rounded-lg transition-colors"`)
			m.url("href", "/auth/login?next="+url.QueryEscape(next))
			m.raw(`>Sign in with GitHub</a>`)
		} else {
			m.raw(`<p class="text-center text-sm text-red-700">Sign-in is not configured on this server.</p>`)
		}
		m.raw(`</div></div>`)
	})
}

const adminInputClass = "w-full px-3 py-2 border border-gray-300 rounded-md focus:outline-none focus:ring-2 focus:ring-blue-500 focus:border-transparent"

// AdminForm collects a new petition and the operator's admin token.
func AdminForm(state petition.AdminState) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		f := state.Form
		m.raw(`<form id="admin-form" class="space-y-6" method="post" hx-swap="outerHTML" hx-disabled-elt="find fieldset"`)
		m.attr("hx-post", href(ctx, "/dashboard/petitions"))
		m.url("action", href(ctx, "/dashboard/petitions"))
		m.raw(`><fieldset class="space-y-6">`)

		m.raw(`<div><label for="title" class="block text-sm font-medium text-gray-700 mb-2">Petition Title *</label>`)
		m.raw(`<input type="text" id="title" name="title" required placeholder="Enter petition title"`)
		m.attr("class", adminInputClass)
		m.attr("value", f.Title)
		m.raw(`></div>`)

		m.raw(`<div><label for="description" class="block text-sm font-medium text-gray-700 mb-2">Description</label>`)
		m.raw(`<textarea id="description" name="description" rows="4" placeholder="Enter petition description"`)
		m.attr("class", adminInputClass)
		m.raw(`>`)
		m.text(f.Description)
		m.raw(`</textarea></div>`)

		m.raw(`<div><label for="link_id" class="block text-sm font-medium text-gray-700 mb-2">Unique Link ID *</label>`)
		m.raw(`<input type="text" id="link_id" name="link_id" required pattern="[a-zA-Z0-9_]+" placeholder="e.g., save_the_park"`)
		m.attr("class", adminInputClass)
		m.attr("value", f.LinkID)
		m.raw(`><p class="text-sm text-gray-500 mt-1">Only letters, numbers, and underscores allowed.</p></div>`)

		m.raw(`<div><label for="admin_token" class="block text-sm font-medium text-gray-700 mb-2">Admin Token *</label>`)
		m.raw(`<input type="password" id="admin_token" name="admin_token" required autocomplete="off"`)
		m.attr("class", adminInputClass)
		m.raw(`></div>`)

		m.raw(`<button type="submit" class="w-full bg-blue-600 hover:bg-blue-700 disabled:bg-blue-400 text-white font-semibold py-3 px-4 rounded-md transition-colors">`)
		m.raw(`<span class="lw-idle">Create Petition</span><span class="lw-busy">Creating...</span></button>`)
		m.raw(`</fieldset>`)
		if state.Message != "" {
			class := "mt-6 p-4 rounded-md bg-red-50 text-red-800"
			if state.Kind == petition.KindSuccess {
				class = "mt-6 p-4 rounded-md bg-green-50 text-green-800"
			}
			m.raw(`<div role="status"`)
			m.attr("class", class)
			m.raw(`>`)
			m.text(state.Message)
			m.raw(`</div>`)
		}
		m.raw(`</form>`)
	})
}
