package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/models"
)

type fakeQuota struct {
	limits    models.AccountLimits
	limitsErr error

	forms      int64
	leads      int64
	storage    int64
	dailyTests int64
	countErr   error
}

func (f *fakeQuota) GetAccountLimits(ctx context.Context, accountID int64) (*models.AccountLimits, error) {
	if f.limitsErr != nil {
		return nil, f.limitsErr
	}
	l := f.limits
	return &l, nil
}

func (f *fakeQuota) CountForms(ctx context.Context, accountID int64) (int64, error) {
	return f.forms, f.countErr
}

func (f *fakeQuota) CountLeads(ctx context.Context, accountID int64) (int64, error) {
	return f.leads, f.countErr
}

func (f *fakeQuota) CountStorageBytes(ctx context.Context, accountID int64) (int64, error) {
	return f.storage, f.countErr
}

func (f *fakeQuota) GetDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error) {
	return f.dailyTests, f.countErr
}

func limitOf(v int64) *int64 { return &v }

func TestCheckAllowsUnderLimit(t *testing.T) {
	quota := &fakeQuota{limits: models.AccountLimits{MaxLeads: limitOf(50)}, leads: 10}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceLeads, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(10), decision.Current)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, int64(50), *decision.Limit)
}

func TestCheckDeniesAtLimit(t *testing.T) {
	quota := &fakeQuota{limits: models.AccountLimits{MaxLeads: limitOf(50)}, leads: 50}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceLeads, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(50), decision.Current)
}

func TestCheckExactlyFillsLimit(t *testing.T) {
	// current + delta == limit admits, one more does not
	quota := &fakeQuota{limits: models.AccountLimits{MaxForms: limitOf(3)}, forms: 2}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceForms, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	quota.forms = 3
	decision, err = c.Check(context.Background(), 1, ResourceForms, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestCheckNilLimitMeansUnlimited(t *testing.T) {
	quota := &fakeQuota{limits: models.AccountLimits{}, leads: 1_000_000}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceLeads, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Limit)
}

func TestCheckStorageUsesDelta(t *testing.T) {
	quota := &fakeQuota{limits: models.AccountLimits{MaxStorageBytes: limitOf(1000)}, storage: 400}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceStorage, 600)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = c.Check(context.Background(), 1, ResourceStorage, 601)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestCheckFailsClosedOnCounterError(t *testing.T) {
	quota := &fakeQuota{
		limits:   models.AccountLimits{MaxLeads: limitOf(50)},
		countErr: errors.New("connection refused"),
	}
	c := NewController(quota, nil)

	for _, resource := range []Resource{ResourceLeads, ResourceForms, ResourceStorage} {
		quota.limits = models.AccountLimits{
			MaxForms:        limitOf(3),
			MaxLeads:        limitOf(50),
			MaxStorageBytes: limitOf(1000),
		}
		_, err := c.Check(context.Background(), 1, resource, 1)
		assert.Error(t, err, string(resource))
	}
}

func TestCheckFailsOpenForDailyTests(t *testing.T) {
	quota := &fakeQuota{
		limits:   models.AccountLimits{DailyTestLimit: limitOf(5)},
		countErr: errors.New("connection refused"),
	}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceDailyTests, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckFailsOpenForDailyTestsOnLimitError(t *testing.T) {
	quota := &fakeQuota{limitsErr: errors.New("connection refused")}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, ResourceDailyTests, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	_, err = c.Check(context.Background(), 1, ResourceLeads, 1)
	assert.Error(t, err)
}

func TestCheckUnknownResource(t *testing.T) {
	quota := &fakeQuota{limits: models.AccountLimits{}}
	c := NewController(quota, nil)

	decision, err := c.Check(context.Background(), 1, Resource("widgets"), 1)
	require.NoError(t, err)
	// Unknown resources have no limit configured, so they pass
	assert.True(t, decision.Allowed)
}
