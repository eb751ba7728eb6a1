package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/card-service/internal/api/shared"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/redact"
	"github.com/phrazzld/card-service/internal/service"
)

// CardHandler handles card-related HTTP requests
type CardHandler struct {
	cardService service.CardService
	logger      *slog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(cardService service.CardService, logger *slog.Logger) *CardHandler {
	if cardService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("cardService cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CardHandler{
		cardService: cardService,
		logger:      logger.With(slog.String("component", "card_handler")),
	}
}

// CreateCard handles POST /cards requests
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.cardService.CreateCard(r.Context(), req.ToInput())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("card_number", domain.MaskCardNumber(card.CardNumber)))
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// ListCards handles GET /cards requests
// The cardId, type and clientId query parameters are combined with OR.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCardFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.cardService.ListCards(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// GetCard handles GET /cards/{cardId} requests
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// UpdateCard handles PUT /cards/{cardId} requests
// Every client-supplied field is replaced; number and expiration are kept.
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	var req CardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.cardService.UpdateCard(r.Context(), cardID, req.ToInput())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// DeleteCard handles DELETE /cards/{cardId} requests
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), cardID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("card deleted", slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusOK)
}

// AssociateAccount handles POST /cards/{cardId}/accounts requests
func (h *CardHandler) AssociateAccount(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	var req AssociateAccountRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.cardService.AssociateAccount(r.Context(), cardID, req.AccountID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// GetPrimaryAccountBalance handles GET /cards/{cardId}/balance requests
func (h *CardHandler) GetPrimaryAccountBalance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	balance, err := h.cardService.GetPrimaryAccountBalance(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BalanceResponse(balance))
}

// GetLastTransactions handles GET /cards/{cardId}/transactions requests
func (h *CardHandler) GetLastTransactions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathCardID(w, r, log)
	if !ok {
		return
	}

	page, size, err := parsePagination(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	txs, err := h.cardService.GetLastTransactions(r.Context(), cardID, page, size)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TransactionListResponse{
		Page:         page,
		Size:         size,
		Transactions: txs,
	})
}

// decodeAndValidate decodes the JSON body into v and runs struct
// validation. On failure it writes a CARD-002 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, log *slog.Logger) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeMalformedCardData, "Invalid request format", err)
		return false
	}

	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeMalformedCardData,
			SanitizeValidationError(err), err)
		return false
	}
	return true
}
