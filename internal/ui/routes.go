package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	// Public routes (no session required).
	r.Get("/", ui.HandleLogin)
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)
	r.Get("/signup", ui.HandleSignup)
	r.Post("/signup", ui.HandleSignupPost)
	r.Get("/logout", ui.HandleLogout)
	r.Post("/logout", ui.HandleLogout)

	// Protected routes (token required).
	r.Group(func(r chi.Router) {
		r.Use(ui.RequireSession)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", ui.HandleDashboard)
			r.Post("/journals", ui.HandleJournalCreate)
			r.Route("/journals/{id}", func(r chi.Router) {
				r.Post("/", ui.HandleJournalUpdate)
				r.Post("/delete", ui.HandleJournalDelete)
			})
			r.Post("/profile", ui.HandleProfileUpdate)
			r.Post("/profile/delete", ui.HandleProfileDelete)
		})

		// The backend decides who is an admin; a 403 shows as the fetch banner.
		r.Route("/admin", func(r chi.Router) {
			r.Get("/", ui.HandleAdmin)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Post("/promote", ui.HandleUserPromote)
				r.Post("/delete", ui.HandleUserDelete)
			})
		})
	})
}
