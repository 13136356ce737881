package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactlink/internal/contact/models"
)

func TestOlderThan(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("earlier createdAt wins", func(t *testing.T) {
		older := &models.Contact{ID: 9, CreatedAt: base}
		younger := &models.Contact{ID: 1, CreatedAt: base.Add(time.Second)}
		assert.True(t, older.OlderThan(younger))
		assert.False(t, younger.OlderThan(older))
	})

	t.Run("equal createdAt falls back to id", func(t *testing.T) {
		a := &models.Contact{ID: 3, CreatedAt: base}
		b := &models.Contact{ID: 7, CreatedAt: base}
		assert.True(t, a.OlderThan(b))
		assert.False(t, b.OlderThan(a))
	})
}

func TestOldest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty slice", func(t *testing.T) {
		assert.Nil(t, models.Oldest(nil))
	})

	t.Run("picks by createdAt then id", func(t *testing.T) {
		contacts := []*models.Contact{
			{ID: 5, CreatedAt: base.Add(time.Minute)},
			{ID: 8, CreatedAt: base},
			{ID: 2, CreatedAt: base},
		}
		oldest := models.Oldest(contacts)
		require.NotNil(t, oldest)
		assert.Equal(t, int64(2), oldest.ID)
	})
}

func TestPrimaryID(t *testing.T) {
	linked := int64(4)

	primary := &models.Contact{ID: 4, LinkPrecedence: models.LinkPrecedencePrimary}
	assert.Equal(t, int64(4), primary.PrimaryID())
	assert.True(t, primary.IsPrimary())

	secondary := &models.Contact{ID: 9, LinkedID: &linked, LinkPrecedence: models.LinkPrecedenceSecondary}
	assert.Equal(t, int64(4), secondary.PrimaryID())
	assert.False(t, secondary.IsPrimary())
}
