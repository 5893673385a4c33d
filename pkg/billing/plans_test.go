package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/notify"
)

func TestPlanByName(t *testing.T) {
	t.Run("known plans resolve", func(t *testing.T) {
		for _, name := range []string{models.PlanFree, models.PlanPro, models.PlanBusiness} {
			p, err := PlanByName(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
		}
	})

	t.Run("unknown plan errors", func(t *testing.T) {
		_, err := PlanByName("enterprise")
		assert.Error(t, err)
	})
}

func TestPlanLimits(t *testing.T) {
	free := LimitsForPlan(models.PlanFree)
	require.NotNil(t, free.MaxForms)
	assert.Equal(t, int64(3), *free.MaxForms)
	assert.Equal(t, int64(50), *free.MaxLeads)
	assert.Equal(t, int64(10*1024*1024), *free.MaxStorageBytes)
	assert.Equal(t, int64(5), *free.DailyTestLimit)

	pro := LimitsForPlan(models.PlanPro)
	assert.Equal(t, int64(20), *pro.MaxForms)
	assert.Equal(t, int64(1000), *pro.MaxLeads)

	business := LimitsForPlan(models.PlanBusiness)
	// Business gets unlimited forms and leads
	assert.Nil(t, business.MaxForms)
	assert.Nil(t, business.MaxLeads)
	assert.Equal(t, int64(500), *business.DailyTestLimit)
}

func TestLimitsForPlan_UnknownFallsBackToFree(t *testing.T) {
	limits := LimitsForPlan("enterprise")
	require.NotNil(t, limits.MaxForms)
	assert.Equal(t, int64(3), *limits.MaxForms)
}

type fakeAccountStore struct {
	account     *models.Account
	updatedPlan string
	limits      models.AccountLimits
}

func (f *fakeAccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return f.account, nil
}

func (f *fakeAccountStore) UpdatePlan(ctx context.Context, accountID int64, plan string, limits models.AccountLimits) error {
	f.updatedPlan = plan
	f.limits = limits
	return nil
}

func (f *fakeAccountStore) SetStripeCustomerID(ctx context.Context, accountID int64, customerID string) error {
	return nil
}

type fakeNotifier struct {
	events []notify.Event
}

func (f *fakeNotifier) Notify(e notify.Event) bool {
	f.events = append(f.events, e)
	return true
}

func TestApplyPlan(t *testing.T) {
	store := &fakeAccountStore{account: &models.Account{ID: 42, Email: "owner@example.com", Plan: models.PlanFree}}
	notifier := &fakeNotifier{}
	service := NewService(store, notifier, &StripeConfig{})

	err := service.ApplyPlan(context.Background(), 42, models.PlanPro)
	require.NoError(t, err)

	assert.Equal(t, models.PlanPro, store.updatedPlan)
	require.NotNil(t, store.limits.MaxLeads)
	assert.Equal(t, int64(1000), *store.limits.MaxLeads)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventPlanChanged, notifier.events[0].Type)
	assert.Equal(t, "free", notifier.events[0].Data["from_plan"])
	assert.Equal(t, "pro", notifier.events[0].Data["to_plan"])
}

func TestApplyPlan_UnknownPlan(t *testing.T) {
	store := &fakeAccountStore{account: &models.Account{ID: 42, Plan: models.PlanFree}}
	service := NewService(store, nil, &StripeConfig{})

	err := service.ApplyPlan(context.Background(), 42, "enterprise")
	assert.Error(t, err)
	assert.Empty(t, store.updatedPlan)
}
