package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/service"
)

// cardIDParam is the chi path parameter holding the card id.
const cardIDParam = "cardId"

// getPathUUID extracts a UUID from the URL path parameters.
// Card ids are opaque to clients, so a value that does not parse is reported
// as an unknown card.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrMalformedCardData, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrCardNotFound, paramName)
	}
	return id, nil
}

// handlePathCardID extracts the card id and writes an error response when
// it is missing or invalid.
func handlePathCardID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	cardID, err := getPathUUID(r, cardIDParam)
	if err != nil {
		log.Debug("invalid card id in path", slog.String("value", chi.URLParam(r, cardIDParam)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return cardID, true
}

// parsePagination reads page and size, defaulting to the first page of
// service.DefaultPageSize entries. Range checks are left to the service.
func parsePagination(r *http.Request) (int, int, error) {
	page, size := 0, service.DefaultPageSize
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, domain.ErrInvalidPaginationParam
		}
		page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, domain.ErrInvalidPaginationParam
		}
		size = n
	}
	return page, size, nil
}

// parseCardFilter builds a filter from the cardId, type and clientId query
// parameters. Absent parameters leave the criterion unset.
func parseCardFilter(r *http.Request) (domain.CardFilter, error) {
	var filter domain.CardFilter
	q := r.URL.Query()

	if v := q.Get("cardId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return domain.CardFilter{}, fmt.Errorf("%w: cardId has invalid format", domain.ErrMalformedCardData)
		}
		filter.ID = &id
	}
	if v := q.Get("type"); v != "" {
		t := domain.CardType(v)
		if !t.Valid() {
			return domain.CardFilter{}, domain.ErrCardTypeInvalid
		}
		filter.Type = &t
	}
	if v := q.Get("clientId"); v != "" {
		filter.ClientID = &v
	}
	return filter, nil
}
