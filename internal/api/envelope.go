package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the shared envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return response.Fail(domainerrors.Code(apiErr.Code), apiErr.Message, apiErr.Details), nil
	}

	env := response.Ok(v)
	if code, err := strconv.Atoi(status); err == nil && code >= 400 {
		env.Success = false
	}
	return env, nil
}
