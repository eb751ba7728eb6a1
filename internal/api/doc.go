// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting for the card service. Handlers translate HTTP
// concerns into calls on service.CardService and service.PaymentService and
// map domain error kinds onto CARD-xxx error bodies.
package api
