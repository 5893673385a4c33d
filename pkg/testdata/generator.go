package testdata

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/formlift/formlift/pkg/forms"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// GeneratorConfig configures seed data generation
type GeneratorConfig struct {
	Accounts     int
	FormsPerAcct int
	LeadsPerForm int
	ImageChance  float64 // 0.0-1.0 probability a form wants images
	FailedChance float64 // 0.0-1.0 probability a lead ended up failed
}

// DefaultConfig is a small seed suitable for local development
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Accounts:     3,
		FormsPerAcct: 2,
		LeadsPerForm: 8,
		ImageChance:  0.5,
		FailedChance: 0.1,
	}
}

var formNameTemplates = []string{
	"%s SEO Audit",
	"%s Landing Page Review",
	"%s Conversion Checkup",
	"%s Accessibility Scan",
	"%s Performance Report",
	"%s Content Analysis",
}

// Generator seeds realistic accounts, forms and leads for development
type Generator struct {
	accounts *store.AccountStore
	forms    *store.FormStore
	leads    *store.LeadStore
	logger   *log.Logger
}

// NewGenerator creates a new seed data generator
func NewGenerator(accounts *store.AccountStore, formStore *store.FormStore, leadStore *store.LeadStore, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		accounts: accounts,
		forms:    formStore,
		leads:    leadStore,
		logger:   logger,
	}
}

// Seed populates the database according to cfg
func (g *Generator) Seed(ctx context.Context, cfg GeneratorConfig) error {
	for i := 0; i < cfg.Accounts; i++ {
		account, err := g.seedAccount(ctx)
		if err != nil {
			return err
		}

		for j := 0; j < cfg.FormsPerAcct; j++ {
			form, err := g.seedForm(ctx, account.ID, rand.Float64() < cfg.ImageChance)
			if err != nil {
				return err
			}

			for k := 0; k < cfg.LeadsPerForm; k++ {
				if err := g.seedLead(ctx, form.ID, rand.Float64() < cfg.FailedChance); err != nil {
					return err
				}
			}
		}
	}

	g.logger.Printf("✅ Seeded %d accounts with %d forms each", cfg.Accounts, cfg.FormsPerAcct)
	return nil
}

func (g *Generator) seedAccount(ctx context.Context) (*models.Account, error) {
	maxForms, maxLeads := int64(20), int64(1000)
	maxStorage, dailyTests := int64(1<<30), int64(50)

	// Fake emails can collide with earlier seeds, retry with a fresh one
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		account, err := g.accounts.Create(ctx,
			strings.ToLower(gofakeit.Email()),
			gofakeit.Name(),
			"$2a$10$seeded.password.hash.not.usable",
			models.PlanPro,
			models.AccountLimits{
				MaxForms:        &maxForms,
				MaxLeads:        &maxLeads,
				MaxStorageBytes: &maxStorage,
				DailyTestLimit:  &dailyTests,
			},
		)
		if err == nil {
			return account, nil
		}
		if !store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to seed account: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to seed account: %w", lastErr)
}

func (g *Generator) seedForm(ctx context.Context, accountID int64, wantImage bool) (*models.Form, error) {
	template := formNameTemplates[rand.Intn(len(formNameTemplates))]
	name := fmt.Sprintf(template, gofakeit.Company())
	slug := fmt.Sprintf("%s-%d", forms.Slugify(name), rand.Intn(10000))

	form, err := g.forms.Create(ctx, accountID, name, slug, wantImage)
	if err != nil {
		return nil, fmt.Errorf("failed to seed form: %w", err)
	}
	return form, nil
}

func (g *Generator) seedLead(ctx context.Context, formID int64, failed bool) error {
	status := models.LeadStatusCompleted
	resultText := fakeReport()
	if failed {
		status = models.LeadStatusFailed
	}

	_, err := g.leads.Insert(ctx, &models.Lead{
		FormID:     formID,
		Email:      strings.ToLower(gofakeit.Email()),
		URL:        gofakeit.URL(),
		ResultText: resultText,
		Status:     status,
		CustomFields: models.CustomFields{
			"company": gofakeit.Company(),
			"role":    gofakeit.JobTitle(),
		},
	})
	if err != nil {
		// A colliding fake email just means one lead fewer
		if store.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to seed lead: %w", err)
	}
	return nil
}

func fakeReport() string {
	var b strings.Builder
	b.WriteString("Summary: ")
	b.WriteString(gofakeit.Sentence(12))
	b.WriteString("\n\nFindings:\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "- %s\n", gofakeit.Sentence(8))
	}
	return b.String()
}
