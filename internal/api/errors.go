package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/card-service/internal/api/shared"
	"github.com/phrazzld/card-service/internal/domain"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeOperationFailed          = "CARD-000"
	CodeCardNotFound             = "CARD-001"
	CodeMalformedCardData        = "CARD-002"
	CodeAccountAlreadyAssociated = "CARD-003"
	CodeInsufficientBalance      = "CARD-004"
	CodeDuplicateCardNumber      = "CARD-005"
)

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

var operationFailed = errorMapping{
	kind:    domain.ErrOperationFailed,
	status:  http.StatusInternalServerError,
	code:    CodeOperationFailed,
	message: "Operation failed",
}

// errorMappings lists every domain error kind. Anything unlisted is reported
// as an operation failure.
var errorMappings = []errorMapping{
	{domain.ErrCardNotFound, http.StatusNotFound, CodeCardNotFound, "Card not found"},
	{domain.ErrMalformedCardData, http.StatusBadRequest, CodeMalformedCardData, "Malformed card data"},
	{
		domain.ErrAccountAlreadyAssociated, http.StatusConflict, CodeAccountAlreadyAssociated,
		"Account already associated with this card",
	},
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired, CodeInsufficientBalance, "Insufficient balance"},
	{
		domain.ErrDuplicateCardNumber, http.StatusConflict, CodeDuplicateCardNumber,
		"Card with this number already exists",
	},
	operationFailed,
}

// lookupError returns the mapping for the first kind err wraps. Client
// messages are fixed per kind so internal details never leak.
func lookupError(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return m
		}
	}
	return operationFailed
}

// HandleAPIError writes the error body for err and logs the redacted cause.
// A non-empty message replaces the default message of the error kind.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	m := lookupError(err)
	if message == "" {
		message = m.message
	}

	var opts []shared.ResponseOption
	if m.status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, m.status, m.code, message, err, opts...)
}

// SanitizeValidationError turns validator output into a short message that
// names the first offending field and never echoes the submitted value.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}

	fe := fieldErrs[0]
	field := fe.Field()
	if idx := strings.IndexByte(field, '['); idx > 0 {
		field = field[:idx]
	}
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "oneof":
		return "invalid value"
	case "unique":
		return "duplicate values"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	default:
		return "validation failed"
	}
}
