package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/sortir/internal/errors"
)

// APIError implements huma.StatusError; EnvelopeTransformer turns it into a failed envelope.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// RegisterErrorHandler replaces huma.NewError. Call it before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromDomain(err); apiErr != nil {
				return apiErr
			}
		}
		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
			Details: detailsOf(errs),
		}
	}
}

// detailsOf keys request validation failures by location ("body.entity_id")
// so a form can attach them to fields. Other errors become a message list.
func detailsOf(errs []error) any {
	if len(errs) == 0 {
		return nil
	}

	fields := make(map[string]string, len(errs))
	var other []string
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if domainerrors.As(err, &detail) && detail.Location != "" {
			fields[detail.Location] = detail.Message
			continue
		}
		other = append(other, err.Error())
	}

	switch {
	case len(other) == 0:
		return fields
	case len(fields) == 0:
		return other
	default:
		return map[string]any{"fields": fields, "errors": other}
	}
}

// toAPIError converts a handler error so huma writes the domain status.
func toAPIError(err error) error {
	if apiErr := fromDomain(err); apiErr != nil {
		return apiErr
	}
	return err
}

func fromDomain(err error) *APIError {
	var domainErr *domainerrors.Error
	if !domainerrors.As(err, &domainErr) {
		return nil
	}
	return &APIError{
		status:  domainErr.HTTPStatus(),
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
		Details: domainErr.Details,
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized, http.StatusForbidden:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeInvalidState)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return string(domainerrors.CodeRemoteUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}
