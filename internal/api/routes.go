package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the card and payment endpoints on r.
func RegisterRoutes(r chi.Router, cards *CardHandler, payments *PaymentHandler) {
	r.Route("/cards", func(r chi.Router) {
		r.Post("/", cards.CreateCard)
		r.Get("/", cards.ListCards)

		r.Route("/{cardId}", func(r chi.Router) {
			r.Get("/", cards.GetCard)
			r.Put("/", cards.UpdateCard)
			r.Delete("/", cards.DeleteCard)
			r.Post("/accounts", cards.AssociateAccount)
			r.Get("/balance", cards.GetPrimaryAccountBalance)
			r.Get("/transactions", cards.GetLastTransactions)
			r.Post("/payments", payments.ProcessPayment)
		})
	})
}
