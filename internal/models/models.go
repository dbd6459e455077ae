package models

import "time"

// Investigation is an archived research report.
type Investigation struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Report          string    `json:"report"`
	EvidenceCount   int       `json:"evidence_count"`
	ImageURLs       []string  `json:"image_urls"`
	SourceImageURLs []string  `json:"source_image_urls"`
	CreatedAt       time.Time `json:"created_at"`
}

// InvestigationSummary is the listing view of an investigation.
type InvestigationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PackCount int       `json:"pack_count"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	PackStatusDraft     = "draft"
	PackStatusPublished = "published"
)

// TransmediaPack is an archived content package tied to an investigation.
type TransmediaPack struct {
	ID              string    `json:"id"`
	InvestigationID string    `json:"investigation_id,omitempty"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Attempt records one (credential, model) generation try.
type Attempt struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	Credential string    `json:"credential"` // masked
	Model      string    `json:"model"`
	Outcome    string    `json:"outcome"`
	ErrorClass string    `json:"error_class,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Headline is an aggregated third-party news item.
type Headline struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"image_url,omitempty"`
	Source      string     `json:"source"`
	Category    string     `json:"category,omitempty"`
	Country     string     `json:"country,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CredentialDiagnosis is the result of probing one vault slot.
type CredentialDiagnosis struct {
	Slot       string `json:"slot"`
	Credential string `json:"credential"` // masked
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
}
