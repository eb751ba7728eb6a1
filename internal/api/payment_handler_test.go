package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func paymentMatching(amount string, op domain.OperationType) interface{} {
	return mock.MatchedBy(func(req domain.PaymentRequest) bool {
		return req.Type == op && req.Amount.String() == amount
	})
}

func TestProcessPayment(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		f := newHandlerFixture(t)
		id := uuid.New()
		f.payments.On("ProcessPaymentOrWithdrawal", mock.Anything, id, paymentMatching("40", domain.OperationPayment)).
			Return(nil).Once()

		rr := f.do(http.MethodPost, "/v1/cards/"+id.String()+"/payments", `{"amount":40,"type":"payment"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("withdrawal", func(t *testing.T) {
		f := newHandlerFixture(t)
		id := uuid.New()
		f.payments.On("ProcessPaymentOrWithdrawal", mock.Anything, id,
			paymentMatching("12.5", domain.OperationWithdrawal)).Return(nil).Once()

		rr := f.do(http.MethodPost, "/v1/cards/"+id.String()+"/payments", `{"amount":"12.50","type":"withdrawal"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newHandlerFixture(t)
		id := uuid.New()
		f.payments.On("ProcessPaymentOrWithdrawal", mock.Anything, id, mock.Anything).
			Return(fmt.Errorf("probe: %w", domain.ErrInsufficientBalance)).Once()

		rr := f.do(http.MethodPost, "/v1/cards/"+id.String()+"/payments", `{"amount":1000,"type":"payment"}`)

		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, CodeInsufficientBalance, body.Code)
		assert.Equal(t, "Insufficient balance", body.Error)
	})

	t.Run("non-positive amount is rejected by the service", func(t *testing.T) {
		f := newHandlerFixture(t)
		id := uuid.New()
		f.payments.On("ProcessPaymentOrWithdrawal", mock.Anything, id, mock.Anything).
			Return(domain.ErrAmountNotPositive).Once()

		rr := f.do(http.MethodPost, "/v1/cards/"+id.String()+"/payments", `{"amount":0,"type":"payment"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, CodeMalformedCardData, decodeError(t, rr).Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		f := newHandlerFixture(t)

		rr := f.do(http.MethodPost, "/v1/cards/"+uuid.NewString()+"/payments", `{"amount":5,"type":"refund"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("amount is not a number", func(t *testing.T) {
		f := newHandlerFixture(t)

		rr := f.do(http.MethodPost, "/v1/cards/"+uuid.NewString()+"/payments", `{"amount":"lots","type":"payment"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown card", func(t *testing.T) {
		f := newHandlerFixture(t)
		id := uuid.New()
		f.payments.On("ProcessPaymentOrWithdrawal", mock.Anything, id, mock.Anything).
			Return(domain.ErrCardNotFound).Once()

		rr := f.do(http.MethodPost, "/v1/cards/"+id.String()+"/payments", `{"amount":5,"type":"payment"}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestNewPaymentHandler_NilService(t *testing.T) {
	assert.Panics(t, func() { NewPaymentHandler(nil, nil) })
}
