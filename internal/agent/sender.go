package agent

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/middleware"
	"github.com/idudko/mendel/internal/model"
	"github.com/idudko/mendel/internal/netutil"
	"github.com/idudko/mendel/pkg/hash"
)

// HeaderAgentID carries the id a sender picks at start.
const HeaderAgentID = "X-Agent-ID"

// RetryIntervals are the waits between attempts to deliver one report.
var RetryIntervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// Sender posts reports to mendel's ingest endpoint.
type Sender struct {
	endpoint string
	key      string
	localIP  string
	agentID  string
	client   *retryablehttp.Client
}

// NewSender returns a sender posting to http://serverAddress/ingest/topic.
// A non-empty key signs the uncompressed body.
func NewSender(serverAddress, topic, key string, intervals []time.Duration) *Sender {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = len(intervals)
	c.HTTPClient.Timeout = 5 * time.Second
	c.Backoff = func(_, _ time.Duration, attempt int, _ *http.Response) time.Duration {
		if len(intervals) == 0 {
			return 0
		}
		if attempt < len(intervals) {
			return intervals[attempt]
		}
		return intervals[len(intervals)-1]
	}

	if !strings.Contains(serverAddress, "://") {
		serverAddress = "http://" + serverAddress
	}
	ip, err := netutil.GetLocalIP()
	if err != nil {
		log.Debug().Err(err).Msg("no local ip for X-Real-IP")
	}

	return &Sender{
		endpoint: strings.TrimRight(serverAddress, "/") + "/ingest/" + strings.Trim(topic, "/"),
		key:      key,
		localIP:  ip,
		agentID:  uuid.NewString(),
		client:   c,
	}
}

// Endpoint returns the URL reports are posted to.
func (s *Sender) Endpoint() string { return s.endpoint }

// AgentID returns the id sent with every report.
func (s *Sender) AgentID() string { return s.agentID }

// Send delivers report, retrying on connection errors and server errors.
func (s *Sender) Send(ctx context.Context, report model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	var b bytes.Buffer
	gw := gzip.NewWriter(&b)
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("failed to write data to gzip writer: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, b.Bytes())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set(HeaderAgentID, s.agentID)
	if s.key != "" {
		req.Header.Set(middleware.HeaderHash, hash.ComputeHash(data, s.key))
	}
	if s.localIP != "" {
		req.Header.Set("X-Real-IP", s.localIP)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
