// Package webhook posts review summaries to an outgoing webhook.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/sdra/pkg/domain/review"
)

// EventReviewCompleted is the event type of a finished review.
const EventReviewCompleted = "review.completed"

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Sdra-Signature"

const reportPreviewLength = 500

// Payload is the JSON body sent to the webhook.
type Payload struct {
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      ReviewSummary `json:"data"`
}

// ReviewSummary describes one finished review.
type ReviewSummary struct {
	SessionID     string    `json:"session_id"`
	Folder        string    `json:"folder"`
	StartedAt     time.Time `json:"started_at"`
	ArtifactsDir  string    `json:"artifacts_dir,omitempty"`
	ReportChars   int       `json:"report_chars"`
	ReportPreview string    `json:"report_preview"`
}

// Summarize builds the summary of session.
func Summarize(session *review.Session, artifactsDir string) ReviewSummary {
	preview := session.FinalReport
	if len(preview) > reportPreviewLength {
		preview = preview[:reportPreviewLength]
	}
	return ReviewSummary{
		SessionID:     session.ID,
		Folder:        session.Folder,
		StartedAt:     session.StartedAt,
		ArtifactsDir:  artifactsDir,
		ReportChars:   len(session.FinalReport),
		ReportPreview: preview,
	}
}

// Notifier delivers review summaries to one endpoint.
type Notifier struct {
	url         string
	secret      string
	client      *http.Client
	deadLetter  *DeadLetterStore
	retryConfig retry.Config
	logger      *slog.Logger
	now         func() time.Time
}

// Options configures a Notifier.
type Options struct {
	Secret     string
	Client     *http.Client
	DeadLetter *DeadLetterStore
	// MaxAttempts defaults to 3.
	MaxAttempts int
	// RetryDelay is the first backoff delay, one second by default.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// NewNotifier creates a notifier posting to url.
func NewNotifier(url string, opts Options) *Notifier {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:        url,
		secret:     opts.Secret,
		client:     client,
		deadLetter: opts.DeadLetter,
		retryConfig: retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			BackoffPolicy: retry.BackoffExponential,
		},
		logger: logger,
		now:    time.Now,
	}
}

// URL returns the endpoint.
func (n *Notifier) URL() string { return n.url }

// NotifyReview posts the summary of a finished review. Failed deliveries
// are retried, then written to the dead letter store.
func (n *Notifier) NotifyReview(ctx context.Context, summary ReviewSummary) error {
	body, err := json.Marshal(Payload{
		EventType: EventReviewCompleted,
		Timestamp: n.now().UTC(),
		Data:      summary,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	attempts := 0
	retryer := retry.New[struct{}](n.retryConfig)
	_, err = retryer.Do(ctx, func(ctx context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, n.send(ctx, body)
	})
	if err == nil {
		return nil
	}

	n.logger.Warn("webhook delivery failed", "url", n.url, "attempts", attempts, "error", err)
	if n.deadLetter != nil {
		dl := DeadLetter{
			Timestamp: n.now().UTC(),
			URL:       n.url,
			EventType: EventReviewCompleted,
			Payload:   string(body),
			Error:     err.Error(),
			Attempts:  attempts,
		}
		if dlErr := n.deadLetter.Append(dl); dlErr != nil {
			n.logger.Warn("dead letter write failed", "error", dlErr)
		}
	}
	return fmt.Errorf("notify %s: %w", n.url, err)
}

func (n *Notifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sdra-webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the HMAC-SHA256 of payload using secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
