package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
)

func setupDB(t *testing.T) *database.Client {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createAccount(t *testing.T, db *database.Client, email string) *models.Account {
	t.Helper()
	maxForms, maxLeads := int64(3), int64(50)
	account, err := NewAccountStore(db).Create(context.Background(), email, "Owner", "hash", models.PlanFree, models.AccountLimits{
		MaxForms: &maxForms,
		MaxLeads: &maxLeads,
	})
	require.NoError(t, err)
	return account
}

func createForm(t *testing.T, db *database.Client, accountID int64, slug string) *models.Form {
	t.Helper()
	form, err := NewFormStore(db).Create(context.Background(), accountID, "Form "+slug, slug, false)
	require.NoError(t, err)
	return form
}

func TestAccountStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	accounts := NewAccountStore(db)

	account := createAccount(t, db, "owner@example.com")
	assert.True(t, account.Active)
	assert.False(t, account.IsAdmin)
	assert.Equal(t, models.PlanFree, account.Plan)

	t.Run("get by email", func(t *testing.T) {
		got, err := accounts.GetByEmail(ctx, "owner@example.com")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)

		_, err = accounts.GetByEmail(ctx, "nobody@example.com")
		assert.True(t, IsNotFound(err))
	})

	t.Run("limits", func(t *testing.T) {
		limits, err := accounts.GetLimits(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, limits.MaxForms)
		assert.Equal(t, int64(3), *limits.MaxForms)
		assert.Nil(t, limits.MaxStorageBytes)
	})

	t.Run("update plan rewrites limits", func(t *testing.T) {
		maxForms, maxLeads := int64(20), int64(1000)
		err := accounts.UpdatePlan(ctx, account.ID, models.PlanPro, models.AccountLimits{
			MaxForms: &maxForms,
			MaxLeads: &maxLeads,
		})
		require.NoError(t, err)

		got, err := accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, got.Plan)
		assert.Equal(t, int64(1000), *got.MaxLeads)
	})

	t.Run("deactivate keeps the row", func(t *testing.T) {
		require.NoError(t, accounts.Deactivate(ctx, account.ID))
		got, err := accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("duplicate email is a unique violation", func(t *testing.T) {
		_, err := accounts.Create(ctx, "owner@example.com", "Other", "hash", models.PlanFree, models.AccountLimits{})
		require.Error(t, err)
	})
}

func TestFormStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	forms := NewFormStore(db)
	account := createAccount(t, db, "owner@example.com")

	form := createForm(t, db, account.ID, "seo-audit")
	assert.NotZero(t, form.ID)

	t.Run("get by slug", func(t *testing.T) {
		got, err := forms.GetBySlug(ctx, "seo-audit")
		require.NoError(t, err)
		assert.Equal(t, form.ID, got.ID)

		_, err = forms.GetBySlug(ctx, "missing")
		assert.True(t, IsNotFound(err))
	})

	t.Run("slug collision is a unique violation", func(t *testing.T) {
		_, err := forms.Create(ctx, account.ID, "Another", "seo-audit", false)
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("count by account", func(t *testing.T) {
		createForm(t, db, account.ID, "second-form")
		count, err := forms.CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("lead counter", func(t *testing.T) {
		require.NoError(t, forms.IncrementLeadCount(ctx, form.ID, 1))
		require.NoError(t, forms.IncrementLeadCount(ctx, form.ID, 1))
		got, err := forms.GetByID(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.LeadCount)
	})
}

func TestLeadStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	leads := NewLeadStore(db)
	account := createAccount(t, db, "owner@example.com")
	form := createForm(t, db, account.ID, "seo-audit")

	lead := &models.Lead{
		FormID:       form.ID,
		Email:        "visitor@example.com",
		URL:          "https://visitor.example.com",
		ResultText:   "report",
		Status:       models.LeadStatusCompleted,
		CustomFields: models.CustomFields{"company": "Acme"},
	}
	id, err := leads.Insert(ctx, lead)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.NotEmpty(t, lead.UUID)

	t.Run("duplicate pair is a unique violation", func(t *testing.T) {
		_, err := leads.Insert(ctx, &models.Lead{FormID: form.ID, Email: "visitor@example.com", URL: "https://x.example.com"})
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("duplicate detection is case-insensitive", func(t *testing.T) {
		_, err := leads.Insert(ctx, &models.Lead{FormID: form.ID, Email: "VISITOR@example.com", URL: "https://x.example.com"})
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("find is case-insensitive", func(t *testing.T) {
		got, err := leads.FindByFormAndEmail(ctx, form.ID, "Visitor@Example.COM")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Acme", got.CustomFields["company"])

		got, err = leads.FindByFormAndEmail(ctx, form.ID, "other@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("same email allowed on another form", func(t *testing.T) {
		other := createForm(t, db, account.ID, "other-form")
		_, err := leads.Insert(ctx, &models.Lead{FormID: other.ID, Email: "visitor@example.com", URL: "https://x.example.com"})
		require.NoError(t, err)
	})

	t.Run("count by account spans forms", func(t *testing.T) {
		count, err := leads.CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("delete then reinsert", func(t *testing.T) {
		require.NoError(t, leads.DeleteByFormAndEmail(ctx, form.ID, "visitor@example.com"))
		_, err := leads.Insert(ctx, &models.Lead{FormID: form.ID, Email: "visitor@example.com", URL: "https://x.example.com"})
		require.NoError(t, err)
	})
}

func TestUsageStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	usage := NewUsageStore(db)
	account := createAccount(t, db, "owner@example.com")

	today := Day(time.Now().UTC())

	t.Run("zero before first use", func(t *testing.T) {
		count, err := usage.GetDailyTestCount(ctx, account.ID, today)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("upsert increments", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := usage.IncrementDailyTestCount(ctx, account.ID, today)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("day rollover starts fresh", func(t *testing.T) {
		tomorrow := Day(time.Now().UTC().AddDate(0, 0, 1))
		got, err := usage.IncrementDailyTestCount(ctx, account.ID, tomorrow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)

		// Today's counter is untouched
		count, err := usage.GetDailyTestCount(ctx, account.ID, today)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("prune removes only old rows", func(t *testing.T) {
		old := Day(time.Now().UTC().AddDate(0, 0, -40))
		_, err := usage.IncrementDailyTestCount(ctx, account.ID, old)
		require.NoError(t, err)

		pruned, err := usage.PruneBefore(ctx, Day(time.Now().UTC().AddDate(0, 0, -30)))
		require.NoError(t, err)
		assert.Equal(t, int64(1), pruned)

		count, err := usage.GetDailyTestCount(ctx, account.ID, today)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestFileStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	files := NewFileStore(db)
	account := createAccount(t, db, "owner@example.com")
	form := createForm(t, db, account.ID, "seo-audit")

	for i, size := range []int64{100, 250} {
		_, err := files.Insert(ctx, &models.KnowledgeFile{
			AccountID:  account.ID,
			FormID:     form.ID,
			Name:       fmt.Sprintf("doc-%d.pdf", i),
			SizeBytes:  size,
			StorageKey: fmt.Sprintf("knowledge/%d/%d/doc-%d.pdf", account.ID, form.ID, i),
		})
		require.NoError(t, err)
	}

	sum, err := files.SumBytesByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum)

	other := createAccount(t, db, "other@example.com")
	sum, err = files.SumBytesByAccount(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)

	list, err := files.ListByForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSettingsStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	settings := NewSettingsStore(db)

	_, found, err := settings.Get(ctx, "ai.text_model")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, settings.Set(ctx, "ai.text_model", "openai:gpt-4o"))
	value, found, err := settings.Get(ctx, "ai.text_model")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "openai:gpt-4o", value)

	// Set overwrites
	require.NoError(t, settings.Set(ctx, "ai.text_model", "openrouter:google/gemini-2.0-flash"))
	value, _, err = settings.Get(ctx, "ai.text_model")
	require.NoError(t, err)
	assert.Equal(t, "openrouter:google/gemini-2.0-flash", value)
}

func TestQuotaFacade(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	accounts := NewAccountStore(db)
	forms := NewFormStore(db)
	leads := NewLeadStore(db)
	files := NewFileStore(db)
	usage := NewUsageStore(db)
	quota := NewQuota(accounts, forms, leads, files, usage)

	account := createAccount(t, db, "owner@example.com")
	form := createForm(t, db, account.ID, "seo-audit")
	_, err := leads.Insert(ctx, &models.Lead{FormID: form.ID, Email: "v@example.com", URL: "https://x.example.com"})
	require.NoError(t, err)

	limits, err := quota.GetAccountLimits(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), *limits.MaxLeads)

	count, err := quota.CountForms(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = quota.CountLeads(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
