// Package gate отображает тариф и его статус в набор доступных возможностей.
// Пакет не обращается к хранилищу: на вход подаются уже загруженные значения.
package gate

import (
	"strings"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// FreeAIQuestionsPerDay дневная квота AI-вопросов на бесплатном тарифе.
const FreeAIQuestionsPerDay = 5

// Feature имя премиальной возможности.
type Feature string

const (
	FeatureThemes          Feature = "themes"
	FeatureWeeklyInsights  Feature = "weekly_insights"
	FeatureMonthlyInsights Feature = "monthly_insights"
	FeatureVoiceRecording  Feature = "voice_recording"
	FeatureVisualThemes    Feature = "visual_themes"
	FeatureVisualEffects   Feature = "visual_effects"
)

// AllFeatures перечень всех премиальных возможностей.
var AllFeatures = []Feature{
	FeatureThemes,
	FeatureWeeklyInsights,
	FeatureMonthlyInsights,
	FeatureVoiceRecording,
	FeatureVisualThemes,
	FeatureVisualEffects,
}

// ParseFeature принимает как "themes", так и "has_themes".
func ParseFeature(s string) (Feature, bool) {
	f := Feature(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "has_"))
	for _, known := range AllFeatures {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Features набор возможностей пользователя. AIQuestionsPerDay == nil означает отсутствие лимита.
type Features struct {
	AIQuestionsPerDay  *int `json:"ai_questions_per_day"`
	HasThemes          bool `json:"has_themes"`
	HasWeeklyInsights  bool `json:"has_weekly_insights"`
	HasMonthlyInsights bool `json:"has_monthly_insights"`
	HasVoiceRecording  bool `json:"has_voice_recording"`
	HasVisualThemes    bool `json:"has_visual_themes"`
	HasVisualEffects   bool `json:"has_visual_effects"`
}

func freeFeatures() Features {
	quota := FreeAIQuestionsPerDay
	return Features{AIQuestionsPerDay: &quota}
}

func premiumFeatures() Features {
	return Features{
		HasThemes:          true,
		HasWeeklyInsights:  true,
		HasMonthlyInsights: true,
		HasVoiceRecording:  true,
		HasVisualThemes:    true,
		HasVisualEffects:   true,
	}
}

// AllowedFeatures возвращает возможности для тарифа с указанным статусом.
// Любой тариф в статусе expired или cancelled считается бесплатным.
func AllowedFeatures(plan models.Plan, status models.Status) Features {
	if status != models.StatusActive {
		return freeFeatures()
	}
	switch plan {
	case models.PlanTrial, models.PlanProMonth, models.PlanProYear:
		return premiumFeatures()
	default:
		return freeFeatures()
	}
}

// Allows сообщает, включена ли возможность в наборе.
func Allows(f Features, feature Feature) bool {
	switch feature {
	case FeatureThemes:
		return f.HasThemes
	case FeatureWeeklyInsights:
		return f.HasWeeklyInsights
	case FeatureMonthlyInsights:
		return f.HasMonthlyInsights
	case FeatureVoiceRecording:
		return f.HasVoiceRecording
	case FeatureVisualThemes:
		return f.HasVisualThemes
	case FeatureVisualEffects:
		return f.HasVisualEffects
	}
	return false
}
