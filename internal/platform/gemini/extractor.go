package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strconv"
	"text/template"
	"time"

	"github.com/phrazzld/venue-scraper/internal/config"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/extraction"
	"github.com/phrazzld/venue-scraper/internal/scraper"
	"google.golang.org/genai"
)

// Limits applied when building the prompt so a large page does not blow the
// model's context window.
const (
	maxPromptTextLength = 5000
	maxPromptImages     = 5
)

// Extractor implements the extraction.Extractor interface using Google's
// Gemini API to extract structured venue data from fetched page content.
type Extractor struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// NewExtractor creates a new Extractor with the provided dependencies.
// The prompt template defaults to the built-in venue extraction prompt and
// can be overridden through config.PromptTemplatePath.
func NewExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}

	templateContent := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		raw, err := os.ReadFile(cfg.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				extraction.ErrInvalidConfig, cfg.PromptTemplatePath, err)
		}
		templateContent = string(raw)
	}

	promptTemplate, err := template.New("venue_extraction").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			extraction.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			extraction.ErrInvalidConfig, err)
	}

	return &Extractor{
		logger:         logger.With(slog.String("component", "gemini_extractor")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// Ensure Extractor implements extraction.Extractor
var _ extraction.Extractor = (*Extractor)(nil)

// Extract produces normalized venue data from fetched page content.
func (e *Extractor) Extract(
	ctx context.Context,
	content *scraper.PageContent,
) (*domain.VenueData, error) {
	prompt, err := e.createPrompt(content)
	if err != nil {
		return nil, err
	}

	response, err := e.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	data, err := buildVenueData(response)
	if err != nil {
		return nil, err
	}

	data.Normalize()

	e.logger.InfoContext(ctx, "venue data extracted",
		slog.String("venue_name", data.Name),
		slog.String("source_url", content.URL))

	return data, nil
}

// promptData is the input to the extraction prompt template.
type promptData struct {
	Title       string
	Description string
	Text        string
	Images      []string
}

// createPrompt renders the extraction prompt from the page content, capping
// the text and image list to keep the prompt bounded.
func (e *Extractor) createPrompt(content *scraper.PageContent) (string, error) {
	if content == nil || content.Text == "" {
		return "", extraction.ErrEmptyContent
	}

	text := content.Text
	if len(text) > maxPromptTextLength {
		text = text[:maxPromptTextLength]
	}

	images := content.Images
	if len(images) > maxPromptImages {
		images = images[:maxPromptImages]
	}

	var buf bytes.Buffer
	err := e.promptTemplate.Execute(&buf, promptData{
		Title:       content.Metadata.Title,
		Description: content.Metadata.Description,
		Text:        text,
		Images:      images,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential backoff
// retry logic. Transient errors are retried up to config.MaxRetries times
// with jitter; permanent errors (blocked content, malformed responses) are
// returned immediately.
func (e *Extractor) callGeminiWithRetry(ctx context.Context, prompt string) (*venueResponse, error) {
	maxRetries := e.config.MaxRetries
	if maxRetries < 0 {
		e.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	baseDelaySeconds := e.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		e.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		response, err, transient := e.callGemini(ctx, prompt)
		if err == nil {
			return response, nil
		}

		e.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if !transient {
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				extraction.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * 2^attempt * jitter in [0.5, 1.0)
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoffSeconds * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", extraction.ErrTransientFailure, ctx.Err())
		}
	}
}

// callGemini performs one API call and classifies its failure as transient
// (retryable) or permanent.
func (e *Extractor) callGemini(
	ctx context.Context,
	prompt string,
) (*venueResponse, error, bool) {
	result, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.5),
		})
	if err != nil {
		// Network and server-side errors are assumed transient.
		return nil, fmt.Errorf("%w: %v", extraction.ErrTransientFailure, err), true
	}

	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", extraction.ErrInvalidResponse), false
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason safety", extraction.ErrContentBlocked), false
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", extraction.ErrInvalidResponse), false
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	response, err := parseVenueResponse([]byte(text))
	if err != nil {
		return nil, err, false
	}

	return response, nil, false
}

// venueResponse mirrors the JSON shape requested from the model. Numeric
// fields are loosely typed because models occasionally return numbers as
// strings (and ratings as numbers).
type venueResponse struct {
	Name     string `json:"name"`
	Location struct {
		City  string `json:"city"`
		Area  string `json:"area"`
		State string `json:"state"`
	} `json:"location"`
	Rating        any `json:"rating"`
	GuestCapacity struct {
		Seated   json.Number `json:"seated"`
		Floating json.Number `json:"floating"`
	} `json:"guest_capacity"`
	PricePerPlate struct {
		Veg    json.Number `json:"veg"`
		NonVeg json.Number `json:"non_veg"`
	} `json:"price_per_plate_starting"`
	VenueTypes      []string    `json:"venue_type"`
	SpacesAvailable []string    `json:"spaces_available"`
	RoomsAvailable  json.Number `json:"rooms_available"`
	CoverImageURLs  []string    `json:"cover_image_url"`
}

// parseVenueResponse decodes the model's JSON output.
func parseVenueResponse(raw []byte) (*venueResponse, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var response venueResponse
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			extraction.ErrInvalidResponse, err)
	}

	return &response, nil
}

// buildVenueData converts the loosely-typed model response into the fixed
// domain schema.
func buildVenueData(response *venueResponse) (*domain.VenueData, error) {
	if response == nil {
		return nil, fmt.Errorf("%w: empty response", extraction.ErrInvalidResponse)
	}

	data := &domain.VenueData{
		Name: response.Name,
		Location: domain.VenueLocation{
			City:  response.Location.City,
			Area:  response.Location.Area,
			State: response.Location.State,
		},
		Rating: coerceRating(response.Rating),
		GuestCapacity: domain.GuestCapacity{
			Seated:   intFromNumber(response.GuestCapacity.Seated),
			Floating: intFromNumber(response.GuestCapacity.Floating),
		},
		PricePerPlate: domain.PricePerPlate{
			Veg:    floatFromNumber(response.PricePerPlate.Veg),
			NonVeg: floatFromNumber(response.PricePerPlate.NonVeg),
		},
		VenueTypes:      response.VenueTypes,
		SpacesAvailable: response.SpacesAvailable,
		RoomsAvailable:  intFromNumber(response.RoomsAvailable),
		CoverImageURLs:  response.CoverImageURLs,
	}

	return data, nil
}

// coerceRating renders whatever the model returned for the rating as a string.
func coerceRating(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// intFromNumber converts a JSON number to *int, dropping absent or
// malformed values.
func intFromNumber(n json.Number) *int {
	if n == "" {
		return nil
	}
	value, err := strconv.Atoi(n.String())
	if err != nil {
		if f, ferr := n.Float64(); ferr == nil {
			value = int(f)
		} else {
			return nil
		}
	}
	return &value
}

// floatFromNumber converts a JSON number to *float64, dropping absent or
// malformed values.
func floatFromNumber(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	value, err := n.Float64()
	if err != nil {
		return nil
	}
	return &value
}
