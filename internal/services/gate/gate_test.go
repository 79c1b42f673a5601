package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

func TestAllowedFeatures(t *testing.T) {
	tests := []struct {
		name      string
		plan      models.Plan
		status    models.Status
		premium   bool
		wantQuota *int
	}{
		{name: "free active", plan: models.PlanFree, status: models.StatusActive, wantQuota: intPtr(5)},
		{name: "trial active", plan: models.PlanTrial, status: models.StatusActive, premium: true},
		{name: "pro month active", plan: models.PlanProMonth, status: models.StatusActive, premium: true},
		{name: "pro year active", plan: models.PlanProYear, status: models.StatusActive, premium: true},
		{name: "pro year expired", plan: models.PlanProYear, status: models.StatusExpired, wantQuota: intPtr(5)},
		{name: "trial cancelled", plan: models.PlanTrial, status: models.StatusCancelled, wantQuota: intPtr(5)},
		{name: "unknown plan", plan: models.Plan("gold"), status: models.StatusActive, wantQuota: intPtr(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := AllowedFeatures(tt.plan, tt.status)
			assert.Equal(t, tt.wantQuota, f.AIQuestionsPerDay)
			for _, feature := range AllFeatures {
				assert.Equal(t, tt.premium, Allows(f, feature), "feature %s", feature)
			}
		})
	}
}

func TestAllowedFeatures_QuotaNotShared(t *testing.T) {
	a := AllowedFeatures(models.PlanFree, models.StatusActive)
	*a.AIQuestionsPerDay = 100
	b := AllowedFeatures(models.PlanFree, models.StatusActive)
	assert.Equal(t, FreeAIQuestionsPerDay, *b.AIQuestionsPerDay)
}

func TestParseFeature(t *testing.T) {
	f, ok := ParseFeature("has_voice_recording")
	require.True(t, ok)
	assert.Equal(t, FeatureVoiceRecording, f)

	f, ok = ParseFeature("Themes")
	require.True(t, ok)
	assert.Equal(t, FeatureThemes, f)

	_, ok = ParseFeature("teleportation")
	assert.False(t, ok)

	assert.False(t, Allows(premiumFeatures(), Feature("teleportation")))
}

func TestCatalog(t *testing.T) {
	plans := Catalog("KZT")
	require.Len(t, plans, 4)
	for _, p := range plans {
		assert.Equal(t, "KZT", p.Currency)
	}

	assert.Equal(t, "", catalog[0].Currency, "catalog must not be mutated")

	price, err := Price(models.PlanProMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(1990), price)

	price, err = Price(models.PlanProYear)
	require.NoError(t, err)
	assert.Equal(t, int64(19100), price)

	_, err = Price(models.PlanTrial)
	assert.ErrorIs(t, err, models.ErrInvalidPlan)

	_, err = Price(models.Plan("vip"))
	assert.ErrorIs(t, err, models.ErrInvalidPlan)
}

func TestCatalog_CopiesDoNotShareQuota(t *testing.T) {
	first := Catalog("KZT")
	require.NotNil(t, first[0].Features.AIQuestionsPerDay)
	*first[0].Features.AIQuestionsPerDay = 1000
	*first[1].DurationDays = 1

	second := Catalog("KZT")
	assert.Equal(t, FreeAIQuestionsPerDay, *second[0].Features.AIQuestionsPerDay)
	assert.Equal(t, 14, *second[1].DurationDays)

	info, ok := Lookup(models.PlanFree)
	require.True(t, ok)
	*info.Features.AIQuestionsPerDay = 0
	assert.Equal(t, FreeAIQuestionsPerDay, *catalog[0].Features.AIQuestionsPerDay)
}

func intPtr(n int) *int { return &n }
