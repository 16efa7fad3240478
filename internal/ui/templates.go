package ui

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/journal/internal/view"
	"github.com/me/journal/pkg/model"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"plural": func(n int, singular, plural string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, singular)
		}
		return humanize.Comma(int64(n)) + " " + plural
	},
	"truncate": view.Truncate,
	"roleBadgeColor": func(role string) string {
		if model.NormalizeRole(role) == model.RoleAdmin {
			return "bg-purple-100 text-purple-800"
		}
		return "bg-gray-100 text-gray-800"
	},
}

// renderTemplate renders a template with the given data.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	_, err = tmpl.New("content").Parse(content)
	if err != nil {
		return fmt.Errorf("parse content: %w", err)
	}

	// Add shared components.
	for compName, compContent := range templates {
		if strings.HasPrefix(compName, "components/") {
			_, err = tmpl.New(filepath.Base(compName)).Parse(compContent)
			if err != nil {
				return fmt.Errorf("parse component %s: %w", compName, err)
			}
		}
	}

	return tmpl.Execute(w, data)
}

// templates holds all template content.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    {{if .RedirectTo}}<meta http-equiv="refresh" content="{{.RedirectAfter}};url={{.RedirectTo}}">{{end}}
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-50 min-h-screen">
    {{if .Session}}
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-5xl mx-auto px-4 sm:px-6 lg:px-8">
            <div class="flex justify-between h-16">
                <div class="flex">
                    <a href="/dashboard" class="flex items-center px-2 py-2 text-xl font-bold text-indigo-600">
                        Journal
                    </a>
                    <div class="hidden sm:ml-6 sm:flex sm:space-x-8">
                        <a href="/dashboard" class="border-transparent text-gray-500 hover:border-gray-300 hover:text-gray-700 inline-flex items-center px-1 pt-1 border-b-2 text-sm font-medium">
                            My Journals
                        </a>
                        {{if .Session.IsAdmin}}
                        <a href="/admin" class="border-transparent text-gray-500 hover:border-gray-300 hover:text-gray-700 inline-flex items-center px-1 pt-1 border-b-2 text-sm font-medium">
                            Admin
                        </a>
                        {{end}}
                    </div>
                </div>
                <div class="flex items-center">
                    <span class="text-sm text-gray-500 mr-4">{{.Session.Username}}</span>
                    <form action="/logout" method="POST">
                        <button type="submit" class="text-sm text-gray-500 hover:text-gray-700">Logout</button>
                    </form>
                </div>
            </div>
        </div>
    </nav>
    {{end}}

    <main class="max-w-5xl mx-auto py-6 sm:px-6 lg:px-8">
        {{template "content" .}}
    </main>
</body>
</html>`,

	"components/alert": `{{define "alert"}}
{{if .Alert}}
<div class="rounded-md bg-red-50 p-4 mb-4" role="alert">
    <div class="text-sm text-red-700">{{.Alert}}</div>
</div>
{{end}}
{{if .Banner}}
<div class="rounded-md bg-yellow-50 p-4 mb-4" role="status">
    <div class="text-sm text-yellow-800">{{.Banner}}</div>
</div>
{{end}}
{{end}}`,

	"login": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center bg-gray-50 py-12 px-4 sm:px-6 lg:px-8">
    <div class="max-w-md w-full space-y-8">
        <div>
            <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">Journal</h2>
            <p class="mt-2 text-center text-sm text-gray-600">Sign in to your account</p>
        </div>
        {{if .Error}}
        <div class="rounded-md bg-red-50 p-4">
            <div class="text-sm text-red-700">{{.Error}}</div>
        </div>
        {{end}}
        <form class="mt-8 space-y-6" action="/login" method="POST">
            <div class="rounded-md shadow-sm -space-y-px">
                <div>
                    <label for="username" class="sr-only">Username</label>
                    <input id="username" name="username" type="text" required value="{{.Username}}"
                           class="appearance-none rounded-none relative block w-full px-3 py-2 border border-gray-300 placeholder-gray-500 text-gray-900 rounded-t-md focus:outline-none focus:ring-indigo-500 focus:border-indigo-500 sm:text-sm"
                           placeholder="Username">
                </div>
                <div>
                    <label for="password" class="sr-only">Password</label>
                    <input id="password" name="password" type="password" required
                           class="appearance-none rounded-none relative block w-full px-3 py-2 border border-gray-300 placeholder-gray-500 text-gray-900 rounded-b-md focus:outline-none focus:ring-indigo-500 focus:border-indigo-500 sm:text-sm"
                           placeholder="Password">
                </div>
            </div>
            <button type="submit"
                    class="w-full flex justify-center py-2 px-4 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">
                Sign in
            </button>
        </form>
        <p class="text-center text-sm text-gray-600">
            No account yet? <a href="/signup" class="text-indigo-600 hover:text-indigo-500">Sign up</a>
        </p>
    </div>
</div>
{{end}}`,

	"signup": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center bg-gray-50 py-12 px-4 sm:px-6 lg:px-8">
    <div class="max-w-md w-full space-y-8">
        <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">Create an account</h2>
        {{if .Success}}
        <div class="rounded-md bg-green-50 p-4">
            <div class="text-sm text-green-700">{{.Success}}</div>
        </div>
        {{end}}
        {{if .Error}}
        <div class="rounded-md bg-red-50 p-4">
            <div class="text-sm text-red-700">{{.Error}}</div>
        </div>
        {{end}}
        <form class="mt-8 space-y-4" action="/signup" method="POST">
            <input name="username" type="text" required value="{{.Username}}" placeholder="Username"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <input name="email" type="email" required value="{{.Email}}" placeholder="Email"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <input name="password" type="password" required placeholder="Password"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <button type="submit"
                    class="w-full flex justify-center py-2 px-4 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">
                Sign up
            </button>
        </form>
        <p class="text-center text-sm text-gray-600">
            Already registered? <a href="/login" class="text-indigo-600 hover:text-indigo-500">Sign in</a>
        </p>
    </div>
</div>
{{end}}`,

	"dashboard": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-6 flex items-center justify-between">
        <div>
            <h1 class="text-2xl font-semibold text-gray-900">{{.Welcome}}</h1>
            <p class="mt-1 text-sm text-gray-500">{{plural (len .Journals) "entry" "entries"}}</p>
        </div>
        <div class="flex items-center space-x-3">
            {{if .ShowAdminLink}}<a href="/admin" class="text-sm text-indigo-600 hover:text-indigo-500">Admin dashboard</a>{{end}}
            <a href="/dashboard?new=1" class="px-4 py-2 text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Add Journal</a>
        </div>
    </div>

    {{template "alert" .}}
    {{if .Notice}}
    <div class="rounded-md bg-green-50 p-4 mb-4"><div class="text-sm text-green-700">{{.Notice}}</div></div>
    {{end}}

    <form action="/dashboard" method="GET" class="mb-6">
        <input type="search" name="q" value="{{.Query}}" placeholder="Search journals..."
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
    </form>

    {{if .Mode}}
    <div class="bg-white shadow rounded-lg p-6 mb-6" id="journal-form">
        <h2 class="text-lg font-medium text-gray-900 mb-4">{{if eq .Mode "edit"}}Edit Journal{{else}}Add Journal{{end}}</h2>
        <form action="{{if eq .Mode "edit"}}/dashboard/journals/{{.Draft.ID}}{{else}}/dashboard/journals{{end}}" method="POST" class="space-y-4">
            <input name="title" type="text" required value="{{.Draft.Title}}" placeholder="Title"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <textarea name="content" rows="6" required placeholder="Write your thoughts..."
                      class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">{{.Draft.Content}}</textarea>
            <div class="flex justify-end space-x-3">
                <a href="/dashboard" class="px-4 py-2 text-sm text-gray-700 border border-gray-300 rounded-md">Cancel</a>
                <button type="submit" class="px-4 py-2 text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Save</button>
            </div>
        </form>
    </div>
    {{end}}

    {{if .Journals}}
    <ul class="space-y-4">
        {{range .Journals}}
        <li class="bg-white shadow rounded-lg p-5">
            <div class="flex justify-between items-start">
                <div>
                    <h3 class="text-lg font-medium text-gray-900">{{.Title}}</h3>
                    {{if not .Date.IsZero}}<p class="text-xs text-gray-500" title="{{formatTime .Date}}">{{formatDate .Date}} &middot; {{ago .Date}}</p>{{end}}
                </div>
                <div class="flex space-x-3">
                    <a href="/dashboard?edit={{.ID}}" class="text-sm text-indigo-600 hover:text-indigo-500">Edit</a>
                    <form action="/dashboard/journals/{{.ID}}/delete" method="POST"
                          onsubmit="this.confirm.value = window.confirm({{$.ConfirmDelete}}) ? 'yes' : ''">
                        <input type="hidden" name="confirm" value="">
                        <button type="submit" class="text-sm text-red-600 hover:text-red-500">Delete</button>
                    </form>
                </div>
            </div>
            <p class="mt-3 text-sm text-gray-700 whitespace-pre-line">{{.Content}}</p>
        </li>
        {{end}}
    </ul>
    {{else}}
    <p class="text-sm text-gray-500">No journals found.</p>
    {{end}}

    <div class="bg-white shadow rounded-lg p-6 mt-10">
        <h2 class="text-lg font-medium text-gray-900 mb-4">Profile</h2>
        <form action="/dashboard/profile" method="POST" class="space-y-4">
            <input name="username" type="text" value="{{.Session.Username}}" placeholder="Username"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <input name="email" type="email" placeholder="Email"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <input name="password" type="password" placeholder="New password"
                   class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <label class="flex items-center text-sm text-gray-700">
                <input name="sentimentAnalysis" type="checkbox" class="mr-2"> Sentiment analysis
            </label>
            <button type="submit" class="px-4 py-2 text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Update Profile</button>
        </form>
        <form action="/dashboard/profile/delete" method="POST" class="mt-4"
              onsubmit="this.confirm.value = window.confirm({{.ConfirmDrop}}) ? 'yes' : ''">
            <input type="hidden" name="confirm" value="">
            <button type="submit" class="text-sm text-red-600 hover:text-red-500">Delete Profile</button>
        </form>
    </div>
</div>
{{end}}`,

	"admin": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-6">
        <h1 class="text-2xl font-semibold text-gray-900">Admin Dashboard</h1>
        <p class="mt-1 text-sm text-gray-500">{{plural (len .Users) "user" "users"}}</p>
    </div>

    {{template "alert" .}}

    <form action="/admin" method="GET" class="mb-6">
        <input type="search" name="q" value="{{.Query}}" placeholder="Search users..."
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
    </form>

    {{if .Users}}
    <div class="space-y-6">
        {{range .Users}}
        <div class="bg-white shadow rounded-lg p-5">
            <div class="flex justify-between items-start">
                <div>
                    <h3 class="text-lg font-medium text-gray-900">{{.Username}} <span class="text-xs text-gray-400 font-mono">#{{.ShortID}}</span></h3>
                    {{if .Email}}<p class="text-sm text-gray-500">{{.Email}}</p>{{end}}
                    <div class="mt-2 flex flex-wrap gap-2">
                        {{range .Roles}}<span class="px-2 py-0.5 text-xs rounded-full {{roleBadgeColor .}}">{{.}}</span>{{end}}
                        <span class="px-2 py-0.5 text-xs rounded-full bg-blue-50 text-blue-700">Sentiment analysis: {{if .SentimentAnalysis}}on{{else}}off{{end}}</span>
                    </div>
                </div>
                <div class="flex space-x-3">
                    {{if not .IsAdmin}}
                    <form action="/admin/users/{{.ID}}/promote" method="POST"
                          onsubmit="this.confirm.value = window.confirm({{$.ConfirmPromote}}) ? 'yes' : ''">
                        <input type="hidden" name="confirm" value="">
                        <button type="submit" class="text-sm text-indigo-600 hover:text-indigo-500">Make Admin</button>
                    </form>
                    {{end}}
                    <form action="/admin/users/{{.ID}}/delete" method="POST"
                          onsubmit="this.confirm.value = window.confirm({{$.ConfirmDelete}}) ? 'yes' : ''">
                        <input type="hidden" name="confirm" value="">
                        <button type="submit" class="text-sm text-red-600 hover:text-red-500">Delete User</button>
                    </form>
                </div>
            </div>
            {{if .JournalEntries}}
            <ul class="mt-4 divide-y divide-gray-100">
                {{range .JournalEntries}}
                <li class="py-2">
                    <p class="text-sm font-medium text-gray-800">{{.Title}} {{if not .Date.IsZero}}<span class="text-xs text-gray-400">{{ago .Date}}</span>{{end}}</p>
                    <p class="text-sm text-gray-600">{{truncate .Content 200}}</p>
                </li>
                {{end}}
            </ul>
            {{else}}
            <p class="mt-4 text-sm text-gray-500">No journal entries.</p>
            {{end}}
        </div>
        {{end}}
    </div>
    {{else}}
    <p class="text-sm text-gray-500">No users found.</p>
    {{end}}
</div>
{{end}}`,

	"error": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="rounded-md bg-red-50 p-6">
        <h2 class="text-lg font-medium text-red-800">Something went wrong</h2>
        <p class="mt-2 text-sm text-red-700">{{.Message}}</p>
        <a href="/login" class="mt-4 inline-block text-sm text-indigo-600 hover:text-indigo-500">Back to login</a>
    </div>
</div>
{{end}}`,
}
