package leads

import (
	"context"
	"log"
	"strings"

	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// LeadRepository is the lead persistence surface the writer needs
type LeadRepository interface {
	FindByFormAndEmail(ctx context.Context, formID int64, email string) (*models.Lead, error)
	Insert(ctx context.Context, l *models.Lead) (int64, error)
	DeleteByFormAndEmail(ctx context.Context, formID int64, email string) error
}

// FormCounter adjusts the denormalized per-form lead counter
type FormCounter interface {
	IncrementLeadCount(ctx context.Context, formID, delta int64) error
}

// AdmissionChecker decides whether the lead quota admits another submission
type AdmissionChecker interface {
	Check(ctx context.Context, accountID int64, resource admission.Resource, delta int64) (admission.Decision, error)
}

// Writer enforces at-most-one stored lead per (form, visitor-email) pair.
// The form owner and the designated test address bypass both the duplicate
// check and the lead quota: their submissions replace the previous lead and
// never touch counters, so unlimited self-testing costs nothing.
type Writer struct {
	leads       LeadRepository
	forms       FormCounter
	admission   AdmissionChecker
	testAddress string
	logger      *log.Logger
}

// NewWriter creates a new idempotent lead writer
func NewWriter(leads LeadRepository, forms FormCounter, adm AdmissionChecker, testAddress string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		leads:       leads,
		forms:       forms,
		admission:   adm,
		testAddress: testAddress,
		logger:      logger,
	}
}

// Submission is the lead payload to persist
type Submission struct {
	Email          string
	URL            string
	ResultText     string
	ResultImageURL string
	Status         string
	CustomFields   models.CustomFields
}

// SubmitResult reports the stored lead and whether the privileged
// replace-path was taken
type SubmitResult struct {
	Lead       *models.Lead
	Created    bool
	Privileged bool
}

// IsTestAddress reports whether email is the designated test address
func (w *Writer) IsTestAddress(email string) bool {
	return w.testAddress != "" && strings.EqualFold(strings.TrimSpace(email), w.testAddress)
}

// IsPrivileged classifies a submitter: the designated test address and the
// form owner take the replace path
func (w *Writer) IsPrivileged(form *models.Form, currentAccountID *int64, email string) bool {
	if w.IsTestAddress(email) {
		return true
	}
	return currentAccountID != nil && *currentAccountID == form.AccountID
}

// Precheck runs the standard-path duplicate and quota checks without
// writing anything. Callers run it before expensive fulfillment work so a
// doomed submission fails before any model call. Submit re-checks
// authoritatively, so a passing precheck is advisory, not a reservation.
func (w *Writer) Precheck(ctx context.Context, form *models.Form, currentAccountID *int64, email string) error {
	if w.IsPrivileged(form, currentAccountID, email) {
		return nil
	}

	existing, err := w.leads.FindByFormAndEmail(ctx, form.ID, email)
	if err != nil {
		return domain.NewPersistenceError(err)
	}
	if existing != nil {
		return domain.NewDuplicateSubmissionError(email)
	}

	decision, err := w.admission.Check(ctx, form.AccountID, admission.ResourceLeads, 1)
	if err != nil {
		return domain.NewInternalError(err)
	}
	if !decision.Allowed {
		var limit int64
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return domain.NewQuotaExceededError(string(admission.ResourceLeads), decision.Current, limit)
	}
	return nil
}

// Submit persists a lead with at-most-once semantics per (form, email).
//
// Standard path: an existing lead is a terminal DuplicateSubmission error;
// otherwise the lead quota is checked, the lead inserted, and the display
// counter incremented strictly after confirmed persistence. A storage-layer
// unique violation during insert is treated as the duplicate signal, which
// keeps the check-then-insert sequence race-free without locks.
func (w *Writer) Submit(ctx context.Context, form *models.Form, currentAccountID *int64, sub Submission) (*SubmitResult, error) {
	if w.IsPrivileged(form, currentAccountID, sub.Email) {
		return w.submitPrivileged(ctx, form, sub)
	}
	return w.submitStandard(ctx, form, sub)
}

// submitPrivileged replaces any previous lead for the pair. It never
// consults the lead quota and never increments the lead counter.
func (w *Writer) submitPrivileged(ctx context.Context, form *models.Form, sub Submission) (*SubmitResult, error) {
	if err := w.leads.DeleteByFormAndEmail(ctx, form.ID, sub.Email); err != nil {
		return nil, domain.NewPersistenceError(err)
	}

	lead := w.toLead(form.ID, sub)
	if _, err := w.leads.Insert(ctx, lead); err != nil {
		return nil, domain.NewPersistenceError(err)
	}

	return &SubmitResult{Lead: lead, Created: true, Privileged: true}, nil
}

func (w *Writer) submitStandard(ctx context.Context, form *models.Form, sub Submission) (*SubmitResult, error) {
	existing, err := w.leads.FindByFormAndEmail(ctx, form.ID, sub.Email)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	if existing != nil {
		return nil, domain.NewDuplicateSubmissionError(sub.Email)
	}

	decision, err := w.admission.Check(ctx, form.AccountID, admission.ResourceLeads, 1)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !decision.Allowed {
		var limit int64
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return nil, domain.NewQuotaExceededError(string(admission.ResourceLeads), decision.Current, limit)
	}

	lead := w.toLead(form.ID, sub)
	if _, err := w.leads.Insert(ctx, lead); err != nil {
		if store.IsUniqueViolation(err) {
			// Lost the race against a concurrent submission for the same pair
			return nil, domain.NewDuplicateSubmissionError(sub.Email)
		}
		// The counter must not move when persistence failed
		return nil, domain.NewPersistenceError(err)
	}

	// Increment only after confirmed persistence. A failure here only
	// affects the display counter; quota checks recount stored rows.
	if err := w.forms.IncrementLeadCount(ctx, form.ID, 1); err != nil {
		w.logger.Printf("⚠️  Failed to update lead counter for form %d: %v", form.ID, err)
	}

	return &SubmitResult{Lead: lead, Created: true}, nil
}

func (w *Writer) toLead(formID int64, sub Submission) *models.Lead {
	status := sub.Status
	if status == "" {
		status = models.LeadStatusCompleted
	}
	return &models.Lead{
		FormID:         formID,
		Email:          strings.TrimSpace(sub.Email),
		URL:            sub.URL,
		ResultText:     sub.ResultText,
		ResultImageURL: sub.ResultImageURL,
		Status:         status,
		CustomFields:   sub.CustomFields,
	}
}
