package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/platform/logger"
)

// OrchestratorResultHandler records the downstream outcome of published
// debits. The service takes no action on results.
type OrchestratorResultHandler struct {
	logger *slog.Logger
}

// NewOrchestratorResultHandler creates the handler.
// If logger is nil, a default logger will be used.
func NewOrchestratorResultHandler(logger *slog.Logger) *OrchestratorResultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrchestratorResultHandler{logger: logger.With("component", "orchestrator_result_handler")}
}

// HandleEvent implements EventHandler.
func (h *OrchestratorResultHandler) HandleEvent(ctx context.Context, event *Event) error {
	var result domain.OrchestratorResult
	if err := event.UnmarshalPayload(&result); err != nil {
		return fmt.Errorf("failed to unmarshal orchestrator result: %w", err)
	}

	logger.FromContextOrDefault(ctx, h.logger).Info("orchestrator result received",
		slog.String("event_id", event.ID.String()),
		slog.String("card_id", result.CardID),
		slog.String("status", result.Status),
		slog.String("message", result.Message))
	return nil
}

// BalancePublisher publishes the current balance of a card.
type BalancePublisher interface {
	PublishBalance(ctx context.Context, cardID uuid.UUID) error
}

// BalanceTriggerHandler answers balance triggers by publishing the card's
// main account balance.
type BalanceTriggerHandler struct {
	publisher BalancePublisher
	logger    *slog.Logger
}

// NewBalanceTriggerHandler creates the handler.
// If logger is nil, a default logger will be used.
func NewBalanceTriggerHandler(publisher BalancePublisher, logger *slog.Logger) *BalanceTriggerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceTriggerHandler{
		publisher: publisher,
		logger:    logger.With("component", "balance_trigger_handler"),
	}
}

// HandleEvent implements EventHandler.
func (h *BalanceTriggerHandler) HandleEvent(ctx context.Context, event *Event) error {
	var trigger domain.BalanceTrigger
	if err := event.UnmarshalPayload(&trigger); err != nil {
		return fmt.Errorf("failed to unmarshal balance trigger: %w", err)
	}
	if trigger.CardID == uuid.Nil {
		return fmt.Errorf("balance trigger %s has no card id", event.ID)
	}

	logger.FromContextOrDefault(ctx, h.logger).Debug("balance trigger received",
		slog.String("event_id", event.ID.String()),
		slog.String("card_id", trigger.CardID.String()))

	return h.publisher.PublishBalance(ctx, trigger.CardID)
}
