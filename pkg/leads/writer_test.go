package leads

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
)

type fakeLeadRepo struct {
	existing   *models.Lead
	findErr    error
	insertErr  error
	deleteErr  error
	inserted   []*models.Lead
	deleted    []string
	nextLeadID int64
}

func (f *fakeLeadRepo) FindByFormAndEmail(ctx context.Context, formID int64, email string) (*models.Lead, error) {
	return f.existing, f.findErr
}

func (f *fakeLeadRepo) Insert(ctx context.Context, l *models.Lead) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextLeadID++
	l.ID = f.nextLeadID
	f.inserted = append(f.inserted, l)
	return l.ID, nil
}

func (f *fakeLeadRepo) DeleteByFormAndEmail(ctx context.Context, formID int64, email string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, email)
	return nil
}

type fakeFormCounter struct {
	increments []int64
	err        error
}

func (f *fakeFormCounter) IncrementLeadCount(ctx context.Context, formID, delta int64) error {
	if f.err != nil {
		return f.err
	}
	f.increments = append(f.increments, delta)
	return nil
}

type fakeAdmission struct {
	decision admission.Decision
	err      error
	calls    int
}

func (f *fakeAdmission) Check(ctx context.Context, accountID int64, resource admission.Resource, delta int64) (admission.Decision, error) {
	f.calls++
	return f.decision, f.err
}

func allow() admission.Decision {
	return admission.Decision{Allowed: true}
}

func testForm() *models.Form {
	return &models.Form{ID: 7, AccountID: 42, Slug: "site-audit"}
}

func TestSubmit_NewLead(t *testing.T) {
	repo := &fakeLeadRepo{}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	res, err := w.Submit(context.Background(), testForm(), nil, Submission{
		Email: "visitor@example.com",
		URL:   "https://example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Privileged)
	assert.Equal(t, models.LeadStatusCompleted, res.Lead.Status)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, []int64{1}, counter.increments)
	assert.Equal(t, 1, adm.calls)
}

func TestSubmit_DuplicateIsTerminal(t *testing.T) {
	repo := &fakeLeadRepo{existing: &models.Lead{ID: 1, Email: "visitor@example.com"}}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	_, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "visitor@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsDuplicateSubmission(err))

	// No quota consumed, nothing stored, counter untouched
	assert.Equal(t, 0, adm.calls)
	assert.Empty(t, repo.inserted)
	assert.Empty(t, counter.increments)
}

func TestSubmit_QuotaDenied(t *testing.T) {
	limit := int64(50)
	repo := &fakeLeadRepo{}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: admission.Decision{Allowed: false, Current: 50, Limit: &limit}}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	_, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "visitor@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsQuotaExceeded(err))

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "leads", derr.Resource)
	assert.Equal(t, int64(50), derr.Current)
	assert.Equal(t, int64(50), derr.Limit)

	assert.Empty(t, repo.inserted)
	assert.Empty(t, counter.increments)
}

func TestSubmit_InsertRaceMapsToDuplicate(t *testing.T) {
	repo := &fakeLeadRepo{insertErr: fmt.Errorf("insert lead: %w", errors.New("UNIQUE constraint failed: leads.form_id, leads.email"))}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	_, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "visitor@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsDuplicateSubmission(err))
	assert.Empty(t, counter.increments)
}

func TestSubmit_InsertFailureSkipsCounter(t *testing.T) {
	repo := &fakeLeadRepo{insertErr: errors.New("connection reset")}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	_, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "visitor@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
	assert.Empty(t, counter.increments)
}

func TestSubmit_CounterFailureIsNonFatal(t *testing.T) {
	repo := &fakeLeadRepo{}
	counter := &fakeFormCounter{err: errors.New("deadlock")}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	res, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "visitor@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestSubmit_TestAddressReplaces(t *testing.T) {
	repo := &fakeLeadRepo{existing: &models.Lead{ID: 1, Email: "Test@FormLift.dev"}}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: admission.Decision{Allowed: false}}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	res, err := w.Submit(context.Background(), testForm(), nil, Submission{Email: "Test@FormLift.dev"})
	require.NoError(t, err)
	assert.True(t, res.Privileged)

	// Replace path: delete then insert, no quota check, no counter change
	assert.Equal(t, []string{"Test@FormLift.dev"}, repo.deleted)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, 0, adm.calls)
	assert.Empty(t, counter.increments)
}

func TestSubmit_OwnerBypassesQuota(t *testing.T) {
	repo := &fakeLeadRepo{}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: admission.Decision{Allowed: false}}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	owner := int64(42)
	res, err := w.Submit(context.Background(), testForm(), &owner, Submission{Email: "owner@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Privileged)
	assert.Equal(t, 0, adm.calls)
	assert.Empty(t, counter.increments)
}

func TestSubmit_NonOwnerAccountIsStandard(t *testing.T) {
	repo := &fakeLeadRepo{}
	counter := &fakeFormCounter{}
	adm := &fakeAdmission{decision: allow()}
	w := NewWriter(repo, counter, adm, "test@formlift.dev", nil)

	other := int64(99)
	res, err := w.Submit(context.Background(), testForm(), &other, Submission{Email: "other@example.com"})
	require.NoError(t, err)
	assert.False(t, res.Privileged)
	assert.Equal(t, 1, adm.calls)
}

func TestPrecheck(t *testing.T) {
	t.Run("duplicate rejected before fulfillment", func(t *testing.T) {
		repo := &fakeLeadRepo{existing: &models.Lead{ID: 1}}
		w := NewWriter(repo, &fakeFormCounter{}, &fakeAdmission{decision: allow()}, "test@formlift.dev", nil)

		err := w.Precheck(context.Background(), testForm(), nil, "visitor@example.com")
		assert.True(t, domain.IsDuplicateSubmission(err))
	})

	t.Run("quota denial surfaces before fulfillment", func(t *testing.T) {
		limit := int64(50)
		adm := &fakeAdmission{decision: admission.Decision{Allowed: false, Current: 50, Limit: &limit}}
		w := NewWriter(&fakeLeadRepo{}, &fakeFormCounter{}, adm, "test@formlift.dev", nil)

		err := w.Precheck(context.Background(), testForm(), nil, "visitor@example.com")
		assert.True(t, domain.IsQuotaExceeded(err))
	})

	t.Run("privileged submitters skip all checks", func(t *testing.T) {
		adm := &fakeAdmission{decision: admission.Decision{Allowed: false}}
		w := NewWriter(&fakeLeadRepo{existing: &models.Lead{ID: 1}}, &fakeFormCounter{}, adm, "test@formlift.dev", nil)

		err := w.Precheck(context.Background(), testForm(), nil, "test@formlift.dev")
		assert.NoError(t, err)
		assert.Equal(t, 0, adm.calls)
	})
}

func TestIsTestAddress(t *testing.T) {
	w := NewWriter(&fakeLeadRepo{}, &fakeFormCounter{}, &fakeAdmission{}, "test@formlift.dev", nil)

	assert.True(t, w.IsTestAddress("test@formlift.dev"))
	assert.True(t, w.IsTestAddress("TEST@FormLift.DEV"))
	assert.True(t, w.IsTestAddress("  test@formlift.dev  "))
	assert.False(t, w.IsTestAddress("visitor@example.com"))

	empty := NewWriter(&fakeLeadRepo{}, &fakeFormCounter{}, &fakeAdmission{}, "", nil)
	assert.False(t, empty.IsTestAddress(""))
}
