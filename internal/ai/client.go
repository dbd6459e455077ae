package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ondaradio/onda/internal/evidence"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/vault"
)

const (
	defaultContext       = "Sin contexto adicional disponible."
	trendFallbackMessage = "No se pudo generar el análisis de tendencias en este momento."
)

// Where a generated artifact came from.
const (
	SourceCloud    = "cloud"
	SourceLocal    = "local"
	SourceRawIntel = "raw_intel"
	SourceTemplate = "template"
	SourceError    = "network_error"
)

// Gatherer fetches evidence for a topic. evidence.Client satisfies it.
type Gatherer interface {
	Gather(ctx context.Context, title, topicContext string) (evidence.Grounding, error)
}

// Prober sends a minimal request with one credential. GeminiProvider satisfies it.
type Prober interface {
	Probe(ctx context.Context, credential, model string) error
}

// GeneratedReport is the research stage output.
type GeneratedReport struct {
	Text            string   `json:"text"`
	EvidenceCount   int      `json:"evidence_count"`
	ImageURLs       []string `json:"image_urls"`
	SourceImageURLs []string `json:"source_image_urls"`
	Source          string   `json:"source"`
	Model           string   `json:"model,omitempty"`
	LastError       string   `json:"last_error,omitempty"`
}

// GeneratedPack is the transmedia stage output. Text is never empty.
type GeneratedPack struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Model     string `json:"model,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Client is the main AI entry point. It runs both pipeline stages and the
// supporting generations, falling back from the cloud cascade to the local
// model and finally to deterministic text.
type Client struct {
	cascade  *Cascade
	local    LocalGenerator
	gatherer Gatherer
	recorder AttemptRecorder

	creds      CredentialLister
	prober     Prober
	probeModel string

	localModel    string
	socialModel   string
	reportTimeout time.Duration
	packTimeout   time.Duration
	assetBaseURL  string
}

type ClientOption func(*Client)

// WithRecorder persists attempt history after each cascade run.
func WithRecorder(r AttemptRecorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithDiagnostics enables DiagnoseCredentials.
func WithDiagnostics(creds CredentialLister, p Prober, model string) ClientOption {
	return func(c *Client) {
		c.creds = creds
		c.prober = p
		c.probeModel = model
	}
}

// WithLocalModels sets the local model used for reports and packs, and the
// one used for trends and social posts.
func WithLocalModels(model, social string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.localModel = model
		}
		if social != "" {
			c.socialModel = social
		}
	}
}

func WithLocalTimeouts(report, pack time.Duration) ClientOption {
	return func(c *Client) {
		if report > 0 {
			c.reportTimeout = report
		}
		if pack > 0 {
			c.packTimeout = pack
		}
	}
}

// WithAssetBaseURL sets the host that serves generated card images.
func WithAssetBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.assetBaseURL = u
		}
	}
}

// NewClient wires the pipeline. local may be nil to disable the local fallback.
func NewClient(cascade *Cascade, local LocalGenerator, gatherer Gatherer, opts ...ClientOption) *Client {
	c := &Client{
		cascade:       cascade,
		local:         local,
		gatherer:      gatherer,
		localModel:    "llama3",
		socialModel:   "mistral",
		reportTimeout: 90 * time.Second,
		packTimeout:   120 * time.Second,
		assetBaseURL:  "http://localhost:3000",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Research gathers evidence for a topic and turns it into a report.
// Only a blank title or a missing credential is returned as an error.
func (c *Client) Research(ctx context.Context, title, topicContext string) (GeneratedReport, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return GeneratedReport{}, ErrMissingInput
	}
	if strings.TrimSpace(topicContext) == "" {
		topicContext = defaultContext
	}

	slog.Info("Starting investigation", "title", title)

	g, err := c.gatherer.Gather(ctx, title, topicContext)
	if err != nil {
		slog.Warn("Evidence gathering failed", "title", title, "error", err)
		return GeneratedReport{
			Text:      NetworkErrorReport(err),
			Source:    SourceError,
			LastError: err.Error(),
		}, nil
	}

	report := GeneratedReport{
		EvidenceCount:   len(g.Items),
		ImageURLs:       g.ProxiedImageURLs,
		SourceImageURLs: g.SourceImageURLs,
	}

	prompt := ResearchPrompt(g.Block)
	res, err := c.cascade.Generate(ctx, prompt, "research")
	c.recordAttempts(res.Attempts)
	if err != nil {
		return GeneratedReport{}, err
	}
	if res.Text != "" {
		report.Text, report.Source, report.Model = res.Text, SourceCloud, res.Model
		return report, nil
	}
	report.LastError = errString(res.LastError)
	slog.Error("Cloud cascade exhausted", "label", "research", "last_error", res.LastError)

	if text := c.localGenerate(ctx, c.localModel, prompt, c.reportTimeout); text != "" {
		report.Text, report.Source, report.Model = text, SourceLocal, c.localModel
		return report, nil
	}

	slog.Warn("No model available, returning raw intel", "title", title, "sources", len(g.Items))
	report.Text, report.Source = RawIntelReport(g.Items), SourceRawIntel
	return report, nil
}

// Transmedia turns a report into a sectioned content package. The returned
// text is never empty.
func (c *Client) Transmedia(ctx context.Context, report, title string) (GeneratedPack, error) {
	title = strings.TrimSpace(title)
	if strings.TrimSpace(report) == "" || title == "" {
		return GeneratedPack{}, ErrMissingInput
	}

	prompt := TransmediaPrompt(report, title, c.assetBaseURL)
	res, err := c.cascade.Generate(ctx, prompt, "transmedia")
	c.recordAttempts(res.Attempts)
	if err != nil {
		return GeneratedPack{}, err
	}
	if res.Text != "" {
		return GeneratedPack{Text: res.Text, Source: SourceCloud, Model: res.Model}, nil
	}
	lastErr := errString(res.LastError)
	slog.Error("Cloud cascade exhausted", "label", "transmedia", "last_error", res.LastError)

	if text := c.localGenerate(ctx, c.localModel, prompt, c.packTimeout); text != "" {
		return GeneratedPack{Text: text, Source: SourceLocal, Model: c.localModel, LastError: lastErr}, nil
	}

	slog.Warn("No model available, building template pack", "title", title)
	return GeneratedPack{Text: TemplatePack(report, title), Source: SourceTemplate, LastError: lastErr}, nil
}

// AnalyzeTrends summarizes which headline is most likely to go viral. It
// prefers the local model and never fails once titles are given.
func (c *Client) AnalyzeTrends(ctx context.Context, titles []string) (string, error) {
	var clean []string
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return "", ErrMissingInput
	}

	text, err := c.localFirst(ctx, TrendPrompt(clean), "trends")
	if err != nil {
		slog.Warn("Trend analysis unavailable", "error", err)
		return trendFallbackMessage, nil
	}
	return text, nil
}

// SocialPost writes one post for a platform, local model first.
func (c *Client) SocialPost(ctx context.Context, topic, platform string) (string, error) {
	topic, platform = strings.TrimSpace(topic), strings.TrimSpace(platform)
	if topic == "" || platform == "" {
		return "", ErrMissingInput
	}
	return c.localFirst(ctx, SocialPostPrompt(topic, platform), "social_post")
}

func (c *Client) localFirst(ctx context.Context, prompt, label string) (string, error) {
	if text := c.localGenerate(ctx, c.socialModel, prompt, c.reportTimeout); text != "" {
		return text, nil
	}
	res, err := c.cascade.Generate(ctx, prompt, label)
	c.recordAttempts(res.Attempts)
	if err != nil {
		return "", err
	}
	if res.Text == "" {
		if res.LastError != nil {
			return "", errors.Join(ErrGenerationFailed, res.LastError)
		}
		return "", ErrGenerationFailed
	}
	return res.Text, nil
}

// DiagnoseCredentials probes every configured credential once, in slot order.
func (c *Client) DiagnoseCredentials(ctx context.Context) ([]models.CredentialDiagnosis, error) {
	if c.creds == nil || c.prober == nil {
		return nil, errors.New("credential diagnostics not configured")
	}
	entries, err := c.creds.Labeled(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoCredentialConfigured
	}

	out := make([]models.CredentialDiagnosis, 0, len(entries))
	for _, e := range entries {
		start := time.Now()
		probeErr := c.prober.Probe(ctx, e.Credential, c.probeModel)
		d := models.CredentialDiagnosis{
			Slot:       e.Slot,
			Credential: vault.Mask(e.Credential),
			Status:     diagnosisStatus(probeErr),
			LatencyMs:  time.Since(start).Milliseconds(),
		}
		if probeErr != nil {
			d.Detail = probeErr.Error()
		}
		slog.Info("Credential probed", "slot", d.Slot, "credential", d.Credential, "status", d.Status)
		out = append(out, d)
	}
	return out, nil
}

func diagnosisStatus(err error) string {
	if err == nil {
		return "ok"
	}
	switch Classify(err) {
	case ClassQuotaExceeded:
		return "rate_limited"
	case ClassNotFound:
		return "not_found"
	case ClassForbidden:
		return "forbidden"
	case ClassInvalidCredential:
		return "invalid"
	default:
		return "error"
	}
}

func (c *Client) localGenerate(ctx context.Context, model, prompt string, timeout time.Duration) string {
	if c.local == nil {
		return ""
	}
	return c.local.Generate(ctx, model, prompt, timeout)
}

// recordAttempts logs each attempt and hands the batch to the recorder.
// It runs after the cascade has decided, never inside it.
func (c *Client) recordAttempts(attempts []models.Attempt) {
	for _, a := range attempts {
		switch a.Outcome {
		case models.OutcomeSuccess:
			slog.Info("Generation attempt succeeded", "label", a.Label, "credential", a.Credential, "model", a.Model, "latency_ms", a.LatencyMs)
		case models.OutcomeSkipped:
			slog.Info("Credential in cooldown, skipped", "label", a.Label, "credential", a.Credential)
		default:
			slog.Warn("Generation attempt failed", "label", a.Label, "credential", a.Credential, "model", a.Model,
				"outcome", a.Outcome, "class", a.ErrorClass, "status", a.StatusCode, "error", a.Error)
		}
	}
	if c.recorder == nil || len(attempts) == 0 {
		return
	}
	if err := c.recorder.LogAttempts(attempts); err != nil {
		slog.Warn("Failed to persist generation attempts", "count", len(attempts), "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
