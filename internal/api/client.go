package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atcscribe/asr-worker/internal/transcription"
	"github.com/atcscribe/asr-worker/internal/types"
)

// maxErrorLen bounds failure messages so they don't explode the DB column
// on the receiving side.
const maxErrorLen = 500

// Client talks to the ATC API: job assignment, result reporting, and the
// ingest notification used by the sync utility.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates an authenticated API client.
func NewClient(base, token string, timeout time.Duration) *Client {
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// jobEnvelope covers both response shapes: {"job": {...}|null} from the
// queue endpoints, or a bare job object from the controller.
type jobEnvelope struct {
	Job *types.Job `json:"job"`
}

// NextJob requests one job assignment. A nil job with nil error means the
// source has nothing to hand out.
func (c *Client) NextJob(ctx context.Context) (*types.Job, error) {
	return c.fetchJob(ctx, http.MethodPost, "/api/asr/next")
}

// SampleJob fetches a sample job for sandbox runs.
func (c *Client) SampleJob(ctx context.Context) (*types.Job, error) {
	return c.fetchJob(ctx, http.MethodGet, "/api/asr/sample")
}

func (c *Client) fetchJob(ctx context.Context, method, path string) (*types.Job, error) {
	var payload any
	if method == http.MethodPost {
		payload = map[string]any{}
	}

	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	var envelope jobEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Job != nil {
		return envelope.Job, nil
	}

	var job types.Job
	if err := json.Unmarshal(body, &job); err == nil && job.ID != 0 && job.AudioURL != "" {
		return &job, nil
	}

	return nil, nil
}

// successPayload keeps the metric fields non-omitempty so absent metrics
// are reported as explicit nulls.
type successPayload struct {
	ID                  int64    `json:"id"`
	ASRText             string   `json:"asr_text"`
	ASRModel            string   `json:"asr_model"`
	ASRAvgLogprob       *float64 `json:"asr_avg_logprob"`
	ASRCompressionRatio *float64 `json:"asr_compression_ratio"`
	ASRNoSpeechProb     *float64 `json:"asr_no_speech_prob"`
	ASRSpeechRatio      *float64 `json:"asr_speech_ratio"`
}

// SubmitSuccess posts a completed transcription. Status is omitted so the
// controller applies its terminal done state.
func (c *Client) SubmitSuccess(ctx context.Context, jobID int64, model string, s transcription.Summary) error {
	_, err := c.do(ctx, http.MethodPost, "/api/asr/result", successPayload{
		ID:                  jobID,
		ASRText:             s.Text,
		ASRModel:            model,
		ASRAvgLogprob:       s.AvgLogprob,
		ASRCompressionRatio: s.CompressionRatio,
		ASRNoSpeechProb:     s.NoSpeechProb,
		ASRSpeechRatio:      s.SpeechRatio,
	})
	return err
}

// SubmitFailure posts a terminal failure for one job. The message is
// truncated to maxErrorLen characters.
func (c *Client) SubmitFailure(ctx context.Context, jobID int64, category, message string) error {
	errText := category
	if message != "" {
		errText = category + ": " + message
	}
	if len(errText) > maxErrorLen {
		errText = errText[:maxErrorLen]
	}

	_, err := c.do(ctx, http.MethodPost, "/api/asr/result", map[string]any{
		"id":     jobID,
		"status": "failed",
		"error":  errText,
	})
	return err
}

// IngestResponse is the controller's answer to an ingest notification.
type IngestResponse struct {
	Created bool  `json:"created"`
	ID      int64 `json:"id"`
}

// Ingest notifies the API of a newly uploaded recording.
func (c *Client) Ingest(ctx context.Context, objectKey string, sizeBytes int64, durationSec *float64) (*IngestResponse, error) {
	payload := map[string]any{
		"object_key": objectKey,
		"size_bytes": sizeBytes,
	}
	if durationSec != nil {
		payload["duration_sec"] = *durationSec
	}

	body, err := c.do(ctx, http.MethodPost, "/api/ingest", payload)
	if err != nil {
		return nil, err
	}

	var resp IngestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse ingest response: %v", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return respBody, nil
}
