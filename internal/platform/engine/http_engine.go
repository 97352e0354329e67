// Package engine talks to the external separation/transcription service.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/core/ports"
	"github.com/stemtide/stemtide_backend/internal/platform/config"
)

// processRequest is the payload sent to the engine. The engine reads the
// input from object storage and writes the result back to it; only keys
// travel over this API.
type processRequest struct {
	JobID               string `json:"job_id"`
	ObjectKey           string `json:"object_key"`
	JobType             string `json:"job_type"`
	Model               string `json:"model,omitempty"`
	OutputFormat        string `json:"output_format,omitempty"`
	TranscriptionType   string `json:"transcription_type,omitempty"`
	TranscriptionFormat string `json:"transcription_format,omitempty"`
	Language            string `json:"language,omitempty"`
}

type processResponse struct {
	ResultKey string `json:"result_key"`
	Error     string `json:"error,omitempty"`
}

// HTTPEngine implements ports.Engine against the processing service's HTTP API.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an engine client. The timeout covers the whole
// processing run, not just the round trip, so it is long.
func NewHTTPEngine(cfg *config.Config) *HTTPEngine {
	return &HTTPEngine{
		baseURL: cfg.EngineURL,
		client:  &http.Client{Timeout: cfg.EngineTimeout},
	}
}

var _ ports.Engine = (*HTTPEngine)(nil)

// Process submits the job and blocks until the engine reports a result.
func (e *HTTPEngine) Process(ctx context.Context, job domain.Job) (string, error) {
	payload := processRequest{
		JobID:               job.JobID,
		ObjectKey:           job.ObjectKey,
		JobType:             string(job.Options.JobType),
		Model:               string(job.Options.Model),
		OutputFormat:        string(job.Options.OutputFormat),
		TranscriptionType:   string(job.Options.TranscriptionType),
		TranscriptionFormat: string(job.Options.TranscriptionFormat),
		Language:            job.Options.Language,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine request for job %s failed: %w", job.JobID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read engine response: %w", err)
	}

	var out processResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("engine returned malformed response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("engine rejected job %s after %s: %s", job.JobID, time.Since(start).Round(time.Second), msg)
	}
	if out.ResultKey == "" {
		return "", fmt.Errorf("engine returned no result key for job %s", job.JobID)
	}
	return out.ResultKey, nil
}
