package gate

import "github.com/BekzhanK1/moodlog-backend/internal/models"

// PlanInfo описание тарифа в каталоге.
type PlanInfo struct {
	Plan         models.Plan `json:"plan"`
	Name         string      `json:"name"`
	Price        int64       `json:"price"`
	Currency     string      `json:"currency"`
	DurationDays *int        `json:"duration_days"`
	Features     Features    `json:"features"`
}

func days(n int) *int { return &n }

var catalog = []PlanInfo{
	{Plan: models.PlanFree, Name: "Free", Price: 0, Features: freeFeatures()},
	{Plan: models.PlanTrial, Name: "Trial", Price: 0, DurationDays: days(14), Features: premiumFeatures()},
	{Plan: models.PlanProMonth, Name: "Pro Monthly", Price: 1990, DurationDays: days(30), Features: premiumFeatures()},
	{Plan: models.PlanProYear, Name: "Pro Yearly", Price: 19100, DurationDays: days(365), Features: premiumFeatures()},
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// clone копия записи каталога без общих указателей.
func (p PlanInfo) clone() PlanInfo {
	p.DurationDays = cloneInt(p.DurationDays)
	p.Features.AIQuestionsPerDay = cloneInt(p.Features.AIQuestionsPerDay)
	return p
}

// Catalog возвращает копию каталога тарифов с указанной валютой.
func Catalog(currency string) []PlanInfo {
	out := make([]PlanInfo, len(catalog))
	for i, p := range catalog {
		out[i] = p.clone()
		out[i].Currency = currency
	}
	return out
}

// Lookup ищет тариф в каталоге.
func Lookup(plan models.Plan) (PlanInfo, bool) {
	for _, p := range catalog {
		if p.Plan == plan {
			return p.clone(), true
		}
	}
	return PlanInfo{}, false
}

// Price цена платного тарифа; ErrInvalidPlan для бесплатных и неизвестных.
func Price(plan models.Plan) (int64, error) {
	if !plan.IsPaid() {
		return 0, models.ErrInvalidPlan
	}
	info, ok := Lookup(plan)
	if !ok {
		return 0, models.ErrInvalidPlan
	}
	return info.Price, nil
}
