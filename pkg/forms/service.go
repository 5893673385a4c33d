package forms

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// FormRepository is the persistence surface the service needs
type FormRepository interface {
	Create(ctx context.Context, accountID int64, name, slug string, wantImage bool) (*models.Form, error)
	GetByID(ctx context.Context, id int64) (*models.Form, error)
	GetBySlug(ctx context.Context, slug string) (*models.Form, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.Form, error)
}

// AdmissionChecker gates form creation on the forms quota
type AdmissionChecker interface {
	Check(ctx context.Context, accountID int64, resource admission.Resource, delta int64) (admission.Decision, error)
}

// Service handles form management for authenticated owners
type Service struct {
	forms     FormRepository
	admission AdmissionChecker
	logger    *log.Logger
}

// NewService creates a new forms service
func NewService(forms FormRepository, adm AdmissionChecker, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{forms: forms, admission: adm, logger: logger}
}

// Create makes a new form after the forms quota admits it
func (s *Service) Create(ctx context.Context, accountID int64, req models.CreateFormRequest) (*models.Form, error) {
	decision, err := s.admission.Check(ctx, accountID, admission.ResourceForms, 1)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !decision.Allowed {
		var limit int64
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return nil, domain.NewQuotaExceededError(string(admission.ResourceForms), decision.Current, limit)
	}

	slug := Slugify(req.Name)
	form, err := s.forms.Create(ctx, accountID, req.Name, slug, req.WantImage)
	if err != nil {
		if store.IsUniqueViolation(err) {
			// Slug collision, retry once with a random suffix
			slug = fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
			form, err = s.forms.Create(ctx, accountID, req.Name, slug, req.WantImage)
		}
		if err != nil {
			return nil, domain.NewPersistenceError(err)
		}
	}

	s.logger.Printf("✅ Created form %s (slug %s) for account %d", form.Name, form.Slug, accountID)
	return form, nil
}

// Get returns a form owned by the account
func (s *Service) Get(ctx context.Context, accountID, formID int64) (*models.Form, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domain.NewNotFoundError("form")
		}
		return nil, domain.NewPersistenceError(err)
	}
	if form.AccountID != accountID {
		return nil, domain.NewForbiddenError("form belongs to another account")
	}
	return form, nil
}

// List returns all forms owned by the account
func (s *Service) List(ctx context.Context, accountID int64) ([]models.Form, error) {
	forms, err := s.forms.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	return forms, nil
}

// Slugify turns a form name into a URL-safe slug
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	return slug
}
