package testdata

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

func seedInto(t *testing.T, cfg GeneratorConfig) (*database.Client, *store.AccountStore, *store.FormStore, *store.LeadStore) {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	forms := store.NewFormStore(db)
	leads := store.NewLeadStore(db)

	g := NewGenerator(accounts, forms, leads, nil)
	require.NoError(t, g.Seed(context.Background(), cfg))
	return db, accounts, forms, leads
}

func TestSeedCreatesRequestedCounts(t *testing.T) {
	cfg := GeneratorConfig{Accounts: 2, FormsPerAcct: 3, LeadsPerForm: 4}
	db, _, _, _ := seedInto(t, cfg)

	var accountCount, formCount, leadCount int64
	require.NoError(t, db.DB.Get(&accountCount, "SELECT COUNT(*) FROM accounts"))
	require.NoError(t, db.DB.Get(&formCount, "SELECT COUNT(*) FROM forms"))
	require.NoError(t, db.DB.Get(&leadCount, "SELECT COUNT(*) FROM leads"))

	assert.Equal(t, int64(2), accountCount)
	assert.Equal(t, int64(6), formCount)
	// Colliding fake emails are skipped, so lead count is at most the target
	assert.LessOrEqual(t, leadCount, int64(24))
	assert.Greater(t, leadCount, int64(0))
}

func TestSeededAccountsAreProPlan(t *testing.T) {
	_, accounts, forms, _ := seedInto(t, GeneratorConfig{Accounts: 1, FormsPerAcct: 2, LeadsPerForm: 1})

	count, err := forms.CountByAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	account, err := accounts.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, account.Plan)
	require.NotNil(t, account.MaxLeads)
	assert.Equal(t, int64(1000), *account.MaxLeads)
}

func TestSeededLeadsHaveRealisticShape(t *testing.T) {
	_, _, _, leads := seedInto(t, GeneratorConfig{Accounts: 1, FormsPerAcct: 1, LeadsPerForm: 5, FailedChance: 0})

	list, err := leads.ListByForm(context.Background(), 1, 50, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for _, l := range list {
		assert.NotEmpty(t, l.Email)
		assert.NotEmpty(t, l.URL)
		assert.Contains(t, l.ResultText, "Findings:")
		assert.Equal(t, models.LeadStatusCompleted, l.Status)
		assert.NotEmpty(t, l.CustomFields["company"])
	}
}
