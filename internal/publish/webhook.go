package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// HeaderTopic carries the result topic on webhook requests.
const HeaderTopic = "X-Mendel-Topic"

// RetryIntervals are the waits between webhook attempts.
var RetryIntervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// WebhookSink POSTs each result body to a URL.
type WebhookSink struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhookSink returns a sink posting to url with the given retry waits.
func NewWebhookSink(url string, intervals []time.Duration) *WebhookSink {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = len(intervals)
	c.HTTPClient.Timeout = 5 * time.Second
	c.Backoff = func(_, _ time.Duration, attempt int, _ *http.Response) time.Duration {
		if attempt < len(intervals) {
			return intervals[attempt]
		}
		return intervals[len(intervals)-1]
	}
	c.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn().Str("url", req.URL.String()).Int("attempt", attempt).Msg("retrying webhook")
		}
	}
	return &WebhookSink{url: url, client: c}
}

func (s *WebhookSink) Publish(ctx context.Context, topic string, body []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTopic, topic)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
