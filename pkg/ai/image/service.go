package image

import (
	"context"
	"fmt"
	"log"

	"github.com/formlift/formlift/pkg/ai"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/metrics"
	"github.com/sashabaranov/go-openai"
)

// StructuredImageAPI is the default provider's dedicated image endpoint,
// satisfied by the OpenAI SDK client.
type StructuredImageAPI interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// RoutedImageAPI is the secondary provider's two call shapes: the dedicated
// image endpoint and the chat interface with image output.
type RoutedImageAPI interface {
	CreateImage(ctx context.Context, modelID, prompt, aspectRatio string) ([]string, error)
	ChatImage(ctx context.Context, modelID, prompt string, referenceImages []string) ([]string, error)
}

// Service executes image generation against the configured backend. For
// openrouter-routed models it tries the dedicated image endpoint first and
// falls back to the chat interface only when the provider reports the model
// has no image route; every other failure surfaces immediately so real
// errors (auth, rate limit, malformed prompt) are never masked by a
// confusing secondary attempt.
type Service struct {
	openaiAPI     StructuredImageAPI
	openrouterAPI RoutedImageAPI
	metrics       *metrics.Metrics
	logger        *log.Logger
}

// NewService creates a new image fulfillment service
func NewService(openaiAPI StructuredImageAPI, openrouterAPI RoutedImageAPI, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		openaiAPI:     openaiAPI,
		openrouterAPI: openrouterAPI,
		logger:        logger,
	}
}

// SetMetrics attaches the Prometheus metrics, may stay nil in tests
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Request is an image generation request
type Request struct {
	Prompt          string
	Size            string   // "1024x1024", "1024x1536", "1536x1024", "auto"
	ReferenceImages []string // URLs or data URIs, fallback path only
}

// AspectRatio maps a requested size to the normalized aspect ratio used by
// the secondary provider. Unrecognized sizes leave the ratio unconstrained.
func AspectRatio(size string) string {
	switch size {
	case "1024x1024":
		return "1:1"
	case "1024x1536":
		return "2:3"
	case "1536x1024":
		return "3:2"
	default:
		return ""
	}
}

// Generate produces one or more images for the configured model. The result
// is always a slice so downstream persistence is uniform regardless of how
// many images the backend returned.
func (s *Service) Generate(ctx context.Context, modelString string, req Request) ([]string, error) {
	m := ai.ParseModel(modelString)
	if m.ID == "" {
		return nil, domain.NewConfigurationError("image model is not configured")
	}

	switch m.Provider {
	case ai.ProviderOpenRouter:
		return s.generateRouted(ctx, m, req)
	default:
		return s.generateStructured(ctx, m, req)
	}
}

// generateStructured calls the default provider's image endpoint directly.
// Any error here is fatal.
func (s *Service) generateStructured(ctx context.Context, m ai.Model, req Request) ([]string, error) {
	imgReq := openai.ImageRequest{
		Model:  m.ID,
		Prompt: req.Prompt,
	}
	if req.Size != "" && req.Size != "auto" {
		imgReq.Size = req.Size
	}

	resp, err := s.openaiAPI.CreateImage(ctx, imgReq)
	if err != nil {
		return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID, err)
	}

	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.URL != "":
			images = append(images, d.URL)
		case d.B64JSON != "":
			images = append(images, "data:image/png;base64,"+d.B64JSON)
		}
	}
	if len(images) == 0 {
		return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID, fmt.Errorf("model returned no image"))
	}
	return images, nil
}

// generateRouted runs the two-tier strategy against the secondary provider.
// The fallback is strictly sequential: it only runs after the primary call
// has definitively failed with the capability-missing signal, never
// speculatively in parallel.
func (s *Service) generateRouted(ctx context.Context, m ai.Model, req Request) ([]string, error) {
	images, primaryErr := s.openrouterAPI.CreateImage(ctx, m.ID, req.Prompt, AspectRatio(req.Size))
	if primaryErr == nil {
		if len(images) == 0 {
			return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID, fmt.Errorf("model returned no image"))
		}
		return images, nil
	}

	if !domain.IsBackendCapability(primaryErr) {
		return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID, primaryErr)
	}

	s.logger.Printf("ℹ️  Image endpoint has no route for %s, retrying via chat interface", m.ID)

	images, fallbackErr := s.openrouterAPI.ChatImage(ctx, m.ID, req.Prompt, req.ReferenceImages)
	if fallbackErr != nil {
		// Composite error: operators need to be able to diagnose either path
		return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID,
			fmt.Errorf("chat fallback failed: %v (image endpoint: %v)", fallbackErr, primaryErr))
	}
	if len(images) == 0 {
		return nil, domain.NewBackendFulfillmentError(string(m.Provider), m.ID, fmt.Errorf("model returned no image"))
	}
	if s.metrics != nil {
		s.metrics.RecordImageFallback()
	}
	return images, nil
}
