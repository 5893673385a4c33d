package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/ai"
	"github.com/formlift/formlift/pkg/ai/image"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/leads"
	"github.com/formlift/formlift/pkg/metrics"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/notify"
	"github.com/formlift/formlift/pkg/settings"
	"github.com/formlift/formlift/pkg/store"
)

// FormSource resolves public form slugs
type FormSource interface {
	GetBySlug(ctx context.Context, slug string) (*models.Form, error)
}

// AccountSource resolves form owners for notifications
type AccountSource interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// LeadSubmitter is the idempotent persistence surface of the pipeline
type LeadSubmitter interface {
	IsPrivileged(form *models.Form, currentAccountID *int64, email string) bool
	Precheck(ctx context.Context, form *models.Form, currentAccountID *int64, email string) error
	Submit(ctx context.Context, form *models.Form, currentAccountID *int64, sub leads.Submission) (*leads.SubmitResult, error)
}

// AdmissionChecker gates privileged submissions on the daily test quota
type AdmissionChecker interface {
	Check(ctx context.Context, accountID int64, resource admission.Resource, delta int64) (admission.Decision, error)
}

// DailyTestCounter tracks consumed test generations
type DailyTestCounter interface {
	IncrementDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error)
}

// SettingsSource reads the admin-controlled model selections
type SettingsSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// ImageGenerator produces images for submissions that want one
type ImageGenerator interface {
	Generate(ctx context.Context, modelString string, req image.Request) ([]string, error)
}

// Notifier receives pipeline events
type Notifier interface {
	Notify(e notify.Event) bool
}

// Service runs the fulfillment pipeline for one form submission: admission,
// text generation, optional image generation, idempotent persistence, and
// detached notifications.
type Service struct {
	forms      FormSource
	accounts   AccountSource
	writer     LeadSubmitter
	admission  AdmissionChecker
	usage      DailyTestCounter
	settings   SettingsSource
	router     *ai.Router
	images     ImageGenerator
	dispatcher Notifier
	metrics    *metrics.Metrics
	timeout    time.Duration
	logger     *log.Logger
}

// NewService creates a new generation service. dispatcher and m may be nil.
func NewService(
	forms FormSource,
	accounts AccountSource,
	writer LeadSubmitter,
	adm AdmissionChecker,
	usage DailyTestCounter,
	set SettingsSource,
	router *ai.Router,
	images ImageGenerator,
	dispatcher Notifier,
	m *metrics.Metrics,
	timeout time.Duration,
	logger *log.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		forms:      forms,
		accounts:   accounts,
		writer:     writer,
		admission:  adm,
		usage:      usage,
		settings:   set,
		router:     router,
		images:     images,
		dispatcher: dispatcher,
		metrics:    m,
		timeout:    timeout,
		logger:     logger,
	}
}

// Process handles one submission end to end. currentAccountID is the
// authenticated account when the submitter is logged in, nil for anonymous
// visitors.
func (s *Service) Process(ctx context.Context, slug string, currentAccountID *int64, req models.SubmissionRequest) (*models.SubmissionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	form, err := s.forms.GetBySlug(ctx, slug)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domain.NewNotFoundError("form")
		}
		return nil, domain.NewPersistenceError(err)
	}
	if form == nil {
		return nil, domain.NewNotFoundError("form")
	}

	privileged := s.writer.IsPrivileged(form, currentAccountID, req.Email)

	// All admission happens before any model call. Privileged submissions
	// consume the daily test quota; standard ones the lead quota.
	if privileged {
		if err := s.checkDailyTests(ctx, form.AccountID); err != nil {
			s.recordDenial(admission.ResourceDailyTests, form, req.Email, err)
			return nil, err
		}
	} else {
		if err := s.writer.Precheck(ctx, form, currentAccountID, req.Email); err != nil {
			if domain.IsQuotaExceeded(err) {
				s.recordDenial(admission.ResourceLeads, form, req.Email, err)
			}
			return nil, err
		}
	}

	resultText, err := s.generateText(ctx, form, req)
	if err != nil {
		return nil, err
	}

	// Image failures after a successful text pass are non-fatal: the lead
	// is stored with a failed status so owners can spot and retry it.
	status := models.LeadStatusCompleted
	var images []string
	if form.WantImage {
		images, err = s.generateImage(ctx, form, resultText)
		if err != nil {
			s.logger.Printf("⚠️  Image generation failed for form %s: %v", form.Slug, err)
			status = models.LeadStatusFailed
			images = nil
		}
	}

	var imageURL string
	if len(images) > 0 {
		imageURL = images[0]
	}

	result, err := s.writer.Submit(ctx, form, currentAccountID, leads.Submission{
		Email:          req.Email,
		URL:            req.URL,
		ResultText:     resultText,
		ResultImageURL: imageURL,
		Status:         status,
		CustomFields:   req.CustomFields,
	})
	if err != nil {
		return nil, err
	}

	if privileged {
		// Counted only after the lead is stored, mirroring the lead counter
		if _, err := s.usage.IncrementDailyTestCount(ctx, form.AccountID, dayNow()); err != nil {
			s.logger.Printf("⚠️  Failed to record daily test for account %d: %v", form.AccountID, err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSubmission(result.Privileged)
		s.metrics.RecordLeadCreated()
	}

	s.notifyLeadCreated(form, result.Lead)

	return &models.SubmissionResponse{
		LeadID:     result.Lead.ID,
		LeadUUID:   result.Lead.UUID,
		Created:    result.Created,
		ResultText: resultText,
		Images:     images,
	}, nil
}

func (s *Service) checkDailyTests(ctx context.Context, accountID int64) error {
	decision, err := s.admission.Check(ctx, accountID, admission.ResourceDailyTests, 1)
	if err != nil {
		return domain.NewInternalError(err)
	}
	if !decision.Allowed {
		var limit int64
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return domain.NewQuotaExceededError(string(admission.ResourceDailyTests), decision.Current, limit)
	}
	return nil
}

func (s *Service) generateText(ctx context.Context, form *models.Form, req models.SubmissionRequest) (string, error) {
	modelString, err := s.settings.Get(ctx, settings.KeyTextModel)
	if err != nil {
		return "", domain.NewInternalError(err)
	}

	backend, model, err := s.router.ResolveText(modelString)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(form, req)
	start := time.Now()
	text, err := backend.Complete(ctx, model.ID, prompt, systemPrompt)
	if s.metrics != nil {
		s.metrics.RecordGeneration(string(model.Provider), "text", time.Since(start), err)
	}
	if err != nil {
		if domain.IsConfiguration(err) || domain.IsBackendCapability(err) {
			return "", err
		}
		return "", domain.NewBackendFulfillmentError(string(model.Provider), model.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewBackendFulfillmentError(string(model.Provider), model.ID, fmt.Errorf("model returned an empty completion"))
	}
	return text, nil
}

func (s *Service) generateImage(ctx context.Context, form *models.Form, resultText string) ([]string, error) {
	modelString, err := s.settings.Get(ctx, settings.KeyImageModel)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	model := ai.ParseModel(modelString)
	prompt := buildImagePrompt(form, resultText)

	start := time.Now()
	images, err := s.images.Generate(ctx, modelString, image.Request{
		Prompt: prompt,
		Size:   "1024x1024",
	})
	if s.metrics != nil {
		s.metrics.RecordGeneration(string(model.Provider), "image", time.Since(start), err)
	}
	return images, err
}

func (s *Service) recordDenial(resource admission.Resource, form *models.Form, email string, err error) {
	if s.metrics != nil {
		s.metrics.RecordQuotaDenial(string(resource))
	}
	s.logger.Printf("ℹ️  Quota denied %s submission on form %s: %v", resource, form.Slug, err)

	var derr *domain.Error
	if !errors.As(err, &derr) {
		return
	}
	s.notifyQuotaExceeded(form, derr)
}

func (s *Service) notifyQuotaExceeded(form *models.Form, derr *domain.Error) {
	if s.dispatcher == nil {
		return
	}
	data := map[string]string{
		"resource": derr.Resource,
		"current":  strconv.FormatInt(derr.Current, 10),
		"limit":    strconv.FormatInt(derr.Limit, 10),
	}
	if owner := s.ownerEmail(form.AccountID); owner != "" {
		data["account_email"] = owner
	}
	s.dispatcher.Notify(notify.Event{
		Type:      notify.EventQuotaExceeded,
		AccountID: form.AccountID,
		FormID:    form.ID,
		Data:      data,
	})
}

func (s *Service) notifyLeadCreated(form *models.Form, lead *models.Lead) {
	if s.dispatcher == nil {
		return
	}
	data := map[string]string{
		"form_name":  form.Name,
		"lead_email": lead.Email,
		"lead_url":   lead.URL,
	}
	if owner := s.ownerEmail(form.AccountID); owner != "" {
		data["account_email"] = owner
	}
	s.dispatcher.Notify(notify.Event{
		Type:      notify.EventLeadCreated,
		AccountID: form.AccountID,
		FormID:    form.ID,
		Data:      data,
	})
}

// ownerEmail is best effort: notification enrichment never fails a request
func (s *Service) ownerEmail(accountID int64) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil || account == nil {
		return ""
	}
	return account.Email
}

const systemPrompt = "You are FormLift's analysis assistant. You produce a concise, well-structured report for the visitor based on the page they submitted. Be specific and actionable. Respond in plain text."

func buildPrompt(form *models.Form, req models.SubmissionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s\n", form.Name)
	fmt.Fprintf(&b, "Analyze the page at %s and write the report this form promises.\n", req.URL)

	if len(req.CustomFields) > 0 {
		b.WriteString("Visitor answers:\n")
		keys := make([]string, 0, len(req.CustomFields))
		for k := range req.CustomFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.CustomFields[k])
		}
	}
	return b.String()
}

func buildImagePrompt(form *models.Form, resultText string) string {
	summary := resultText
	if len(summary) > 600 {
		summary = summary[:600]
	}
	return fmt.Sprintf("Create a single clean illustration summarizing this report for the form %q. No text in the image.\n\nReport:\n%s", form.Name, summary)
}

func dayNow() string {
	return time.Now().UTC().Format("2006-01-02")
}
