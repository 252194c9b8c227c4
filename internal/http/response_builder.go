package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Transport-only error kinds, next to the ledger's own.
const (
	kindBadRequest  core.Kind = "BadRequest"
	kindRateLimited core.Kind = "RateLimited"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   core.Kind        `json:"error"`
	Message string           `json:"message"`
	Limit   *decimal.Decimal `json:"limit,omitempty"`
	Account string           `json:"account,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A body that fails to encode becomes a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.statusCode == http.StatusNoContent || b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal","message":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, kind core.Kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: kind, Message: message})
}

// BadRequestError creates a 400 response for bodies or parameters that
// could not be parsed at all.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, kindBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, core.KindNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, core.KindInternal, message)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindNotFound, core.KindAccountNotFound:
		return http.StatusNotFound
	case core.KindDuplicateName:
		return http.StatusConflict
	case core.KindInvalidParent, core.KindCapExceeded, core.KindInvalidAmount,
		core.KindInvalidOperation, core.KindInsufficientFunds, core.KindInvalid:
		return http.StatusUnprocessableEntity
	case kindBadRequest:
		return http.StatusBadRequest
	case kindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromErr renders a ledger error with its kind, and the limit and
// account it carries, if any. Internal failures hide their message.
func ErrorFromErr(err error) *JSONResponseBuilder {
	kind := core.KindOf(err)
	if errors.Is(err, errMalformedRequest) {
		kind = kindBadRequest
	}

	body := ErrorBody{Error: kind, Message: err.Error()}
	switch kind {
	case core.KindInternal:
		body.Message = "internal error"
	case core.KindPersistenceFailure:
		body.Message = "the ledger could not be saved, nothing was changed"
	}

	if limit, ok := core.Limit(err); ok {
		body.Limit = &limit
	}
	body.Account = errAccount(err)

	return NewJSONResponse().Status(StatusFor(kind)).Body(body)
}

func errAccount(err error) string {
	var capErr *core.CapExceededError
	if errors.As(err, &capErr) {
		return capErr.Account
	}
	var fundsErr *core.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return fundsErr.Account
	}
	var missing *core.AccountNotFoundError
	if errors.As(err, &missing) {
		return missing.Name
	}
	return ""
}
