package billing

import (
	"fmt"

	"github.com/formlift/formlift/pkg/models"
)

func ptr(v int64) *int64 { return &v }

// Plan describes one subscription tier and the quota limits it grants.
// A nil limit means unlimited.
type Plan struct {
	Name        string   `json:"name"`
	Price       int64    `json:"price"` // USD per month
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Limits      models.AccountLimits
}

// Plans is the tier table, ordered cheapest first
var Plans = []Plan{
	{
		Name:        models.PlanFree,
		Price:       0,
		Description: "Try FormLift on a single project",
		Features: []string{
			"3 forms",
			"50 leads",
			"10 MB knowledge storage",
			"5 test generations per day",
		},
		Limits: models.AccountLimits{
			MaxForms:        ptr(3),
			MaxLeads:        ptr(50),
			MaxStorageBytes: ptr(10 * 1024 * 1024),
			DailyTestLimit:  ptr(5),
		},
	},
	{
		Name:        models.PlanPro,
		Price:       29,
		Description: "For freelancers and small teams",
		Features: []string{
			"20 forms",
			"1,000 leads",
			"1 GB knowledge storage",
			"50 test generations per day",
			"Email support",
		},
		Limits: models.AccountLimits{
			MaxForms:        ptr(20),
			MaxLeads:        ptr(1000),
			MaxStorageBytes: ptr(1024 * 1024 * 1024),
			DailyTestLimit:  ptr(50),
		},
	},
	{
		Name:        models.PlanBusiness,
		Price:       99,
		Description: "For agencies running forms at scale",
		Features: []string{
			"Unlimited forms",
			"Unlimited leads",
			"10 GB knowledge storage",
			"500 test generations per day",
			"Priority support",
		},
		Limits: models.AccountLimits{
			MaxForms:        nil,
			MaxLeads:        nil,
			MaxStorageBytes: ptr(10 * 1024 * 1024 * 1024),
			DailyTestLimit:  ptr(500),
		},
	},
}

// PlanByName looks up a tier by name
func PlanByName(name string) (Plan, error) {
	for _, p := range Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("invalid plan: %s", name)
}

// LimitsForPlan returns the quota limits a plan grants. Unknown plans get
// the free tier limits.
func LimitsForPlan(name string) models.AccountLimits {
	p, err := PlanByName(name)
	if err != nil {
		return Plans[0].Limits
	}
	return p.Limits
}
