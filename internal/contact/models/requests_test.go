package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactlink/internal/contact/models"
)

func TestNormalize(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		email := "  a@example.com "
		phone := "\t111\n"
		req := models.IdentifyRequest{Email: &email, PhoneNumber: &phone}
		req.Normalize()
		require.NotNil(t, req.Email)
		require.NotNil(t, req.PhoneNumber)
		assert.Equal(t, "a@example.com", *req.Email)
		assert.Equal(t, "111", *req.PhoneNumber)
	})

	t.Run("collapses empty and blank to nil", func(t *testing.T) {
		empty := ""
		blank := "   "
		req := models.IdentifyRequest{Email: &empty, PhoneNumber: &blank}
		req.Normalize()
		assert.Nil(t, req.Email)
		assert.Nil(t, req.PhoneNumber)
		assert.False(t, req.HasIdentifier())
	})

	t.Run("nil fields stay nil", func(t *testing.T) {
		req := models.IdentifyRequest{}
		req.Normalize()
		assert.Nil(t, req.Email)
		assert.Nil(t, req.PhoneNumber)
	})
}
