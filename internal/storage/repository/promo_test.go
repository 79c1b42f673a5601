package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

func TestStorage_PromoCodes(t *testing.T) {
	s, f := setupTestStorage(t)
	ctx := context.Background()
	admin := uuid.NewString()
	now := time.Now().UTC()

	create := func(code string, createdAt time.Time) *models.PromoCode {
		p, err := s.CreatePromoCode(ctx, models.PromoCode{
			ID:        uuid.NewString(),
			Code:      code,
			Plan:      models.PlanProMonth,
			CreatedBy: admin,
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
		return p
	}

	older := create("OLDER1", now.Add(-time.Hour))
	newer := create("NEWER1", now)
	f.CreatePromo(t, "FOREIGN1", models.PlanProYear, nil)

	_, err := s.CreatePromoCode(ctx, models.PromoCode{
		ID: uuid.NewString(), Code: "OLDER1", Plan: models.PlanProYear, CreatedBy: admin, CreatedAt: now,
	})
	assert.ErrorIs(t, err, models.ErrPromoCodeExists)

	exists, err := s.PromoCodeExists(ctx, "NEWER1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.PromoCodeExists(ctx, "ABSENT1")
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := s.ListPromoCodes(ctx, admin, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	// погашаем older
	user := f.CreateUser(t)
	change := models.PlanChange{
		Plan: models.PlanProMonth, Cause: models.CausePromo, StartedAt: now,
		ExpiresAt: models.PlanProMonth.ExpiresAt(now), PromoCode: "OLDER1",
	}
	_, err = s.ApplyPlan(ctx, user, change)
	require.NoError(t, err)

	list, err = s.ListPromoCodes(ctx, admin, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	used, err := s.GetPromoCode(ctx, "OLDER1")
	require.NoError(t, err)
	assert.True(t, used.IsUsed)
	require.NotNil(t, used.UsedBy)
	assert.Equal(t, user, *used.UsedBy)
	require.NotNil(t, used.UsedAt)

	assert.ErrorIs(t, s.DeletePromoCode(ctx, older.ID), models.ErrPromoCodeInUse)
	assert.NoError(t, s.DeletePromoCode(ctx, newer.ID))
	assert.ErrorIs(t, s.DeletePromoCode(ctx, newer.ID), models.ErrPromoNotFound)

	_, err = s.GetPromoCode(ctx, "NEWER1")
	assert.ErrorIs(t, err, models.ErrPromoNotFound)
}
