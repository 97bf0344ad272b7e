package journals

import "github.com/go-chi/chi/v5"

// MountRoutes registers HTTP routes for the journal ledger.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/journals", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/post", h.Post)
		r.Post("/{id}/void", h.Void)
		r.Post("/{id}/reverse", h.Reverse)
	})
}
