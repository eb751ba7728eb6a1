package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/service"
)

// PaymentHandler handles payment and withdrawal requests
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *slog.Logger) *PaymentHandler {
	if paymentService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("paymentService cannot be nil for PaymentHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger.With(slog.String("component", "payment_handler")),
	}
}

// ProcessPayment handles POST /cards/{cardId}/payments requests.
// A 200 with an empty body means the debit is committed.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	var req PaymentRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	if err := h.paymentService.ProcessPaymentOrWithdrawal(r.Context(), cardID, req.ToDomain()); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("payment accepted",
		slog.String("card_id", cardID.String()),
		slog.String("type", req.Type),
		slog.String("amount", req.Amount.String()))
	w.WriteHeader(http.StatusOK)
}
