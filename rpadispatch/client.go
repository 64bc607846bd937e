package rpadispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultDispatchTimeout bounds every outbound bot call. Expiry cancels the
// request and is reported as a timeout failure for that carrier only.
const DefaultDispatchTimeout = 30 * time.Second

// botClient posts start_automation payloads to carrier RPA bot webhooks.
type botClient struct {
	http *http.Client
}

func newBotClient(timeout time.Duration) *botClient {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &botClient{
		http: &http.Client{Timeout: timeout},
	}
}

// post sends one payload and decodes the bot's JSON response. Non-2xx,
// timeout, unreachable, and malformed-response conditions all come back as
// errors classified by classifyDispatchError.
func (c *botClient) post(ctx context.Context, webhookURL string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bot returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	parsed := map[string]interface{}{}
	if len(strings.TrimSpace(string(respBody))) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("malformed bot response: %w", err)
		}
	}
	return parsed, nil
}

// classifyDispatchError distinguishes the three network failure modes an
// agent can act on differently: a timed-out bot, an unreachable endpoint
// (DNS/connection), and everything else.
func classifyDispatchError(err error, timeout time.Duration) string {
	if err == nil {
		return ""
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("request timed out after %s", timeout)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return "carrier endpoint unreachable: " + err.Error()
	}

	return "network error: " + err.Error()
}
