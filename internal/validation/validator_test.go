package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/validation"
)

type favoriteRequest struct {
	EntityID   int64  `json:"entity_id" validate:"gt=0"`
	EntityType string `json:"entity_type" validate:"required,oneof=event restaurant"`
	Note       string `json:"note,omitempty" validate:"max=10"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(favoriteRequest{EntityID: 42, EntityType: "event"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       favoriteRequest
		wantField string
		wantMsg   string
	}{
		{"non-positive id", favoriteRequest{EntityID: 0, EntityType: "event"}, "entity_id", "must be greater than 0"},
		{"missing type", favoriteRequest{EntityID: 1}, "entity_type", "is required"},
		{"unknown type", favoriteRequest{EntityID: 1, EntityType: "museum"}, "entity_type", "must be one of: event restaurant"},
		{"long note", favoriteRequest{EntityID: 1, EntityType: "event", Note: "far too long a note"}, "note", "must not exceed 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("date", "2025-06-01", "datetime=2006-01-02"))

	err := v.Var("date", "June first", "datetime=2006-01-02")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.NoError(t, v.Var("timezone", "Europe/Paris", "timezone"))
	err = v.Var("timezone", "Mars/Olympus", "timezone")
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, map[string]string{"timezone": "must be an IANA time zone"}, domainErr.Details)
}
