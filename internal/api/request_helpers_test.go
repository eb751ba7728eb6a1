package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routeRequest sends a request through a chi router so that URL parameters
// are populated, and returns the request the handler saw.
func routeRequest(t *testing.T, pattern, path string) *http.Request {
	t.Helper()

	var captured *http.Request
	router := chi.NewRouter()
	router.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		captured = r
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	require.NotNil(t, captured, "route %s did not match %s", pattern, path)
	return captured
}

func TestGetPathUUID(t *testing.T) {
	validUUID := uuid.New()

	t.Run("valid UUID parameter", func(t *testing.T) {
		r := routeRequest(t, "/cards/{cardId}", "/cards/"+validUUID.String())
		id, err := getPathUUID(r, cardIDParam)
		require.NoError(t, err)
		assert.Equal(t, validUUID, id)
	})

	t.Run("missing parameter", func(t *testing.T) {
		r := routeRequest(t, "/cards", "/cards")
		id, err := getPathUUID(r, cardIDParam)
		assert.ErrorIs(t, err, domain.ErrMalformedCardData)
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("invalid UUID is an unknown card", func(t *testing.T) {
		r := routeRequest(t, "/cards/{cardId}", "/cards/not-a-uuid")
		id, err := getPathUUID(r, cardIDParam)
		assert.ErrorIs(t, err, domain.ErrCardNotFound)
		assert.Equal(t, uuid.Nil, id)
	})
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		expectedPage int
		expectedSize int
		expectError  bool
	}{
		{"defaults", "", 0, service.DefaultPageSize, false},
		{"explicit values", "?page=3&size=25", 3, 25, false},
		{"out of range passes through", "?page=-1&size=500", -1, 500, false},
		{"non-numeric page", "?page=abc", 0, 0, true},
		{"non-numeric size", "?size=1.5", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cards/x/transactions"+tt.query, nil)
			page, size, err := parsePagination(req)
			if tt.expectError {
				assert.ErrorIs(t, err, domain.ErrMalformedCardData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPage, page)
			assert.Equal(t, tt.expectedSize, size)
		})
	}
}

func TestParseCardFilter(t *testing.T) {
	id := uuid.New()

	t.Run("no parameters", func(t *testing.T) {
		filter, err := parseCardFilter(httptest.NewRequest(http.MethodGet, "/cards", nil))
		require.NoError(t, err)
		assert.True(t, filter.IsEmpty())
	})

	t.Run("all parameters", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cards?cardId="+id.String()+"&type=credit&clientId=c-1", nil)
		filter, err := parseCardFilter(req)
		require.NoError(t, err)
		require.NotNil(t, filter.ID)
		require.NotNil(t, filter.Type)
		require.NotNil(t, filter.ClientID)
		assert.Equal(t, id, *filter.ID)
		assert.Equal(t, domain.CardTypeCredit, *filter.Type)
		assert.Equal(t, "c-1", *filter.ClientID)
	})

	t.Run("invalid card id", func(t *testing.T) {
		_, err := parseCardFilter(httptest.NewRequest(http.MethodGet, "/cards?cardId=nope", nil))
		assert.ErrorIs(t, err, domain.ErrMalformedCardData)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := parseCardFilter(httptest.NewRequest(http.MethodGet, "/cards?type=prepaid", nil))
		assert.ErrorIs(t, err, domain.ErrCardTypeInvalid)
	})
}
