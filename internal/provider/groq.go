package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/volnat/murmur/internal/config"
	"github.com/volnat/murmur/internal/core"
)

type GroqConfig struct {
	Endpoint    string
	APIKey      string
	HTTPTimeout time.Duration
}

// GroqProvider streams chat completions from a Groq (OpenAI-compatible)
// endpoint using server-sent events.
type GroqProvider struct {
	endpoint      string
	apiKey        string
	client        *http.Client
	requestLogger *RequestLogger
	validateRoles bool
}

func NewGroqProvider(cfg GroqConfig, debugCfg config.DebugConfig) *GroqProvider {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	provider := &GroqProvider{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}

	if debugCfg.LogRequests || debugCfg.LogResponses {
		provider.requestLogger = NewRequestLogger(
			debugCfg.LogDirectory,
			debugCfg.LogRequests,
			debugCfg.LogResponses,
			slog.Default(),
		)
	}

	provider.validateRoles = debugCfg.ValidateRoles

	return provider
}

func (p *GroqProvider) Stream(ctx context.Context, history []core.Turn, modelID string) (<-chan Fragment, error) {
	requestID := core.NewRequestID()

	if p.validateRoles {
		if err := validateHistory(history); err != nil {
			if p.requestLogger != nil {
				p.requestLogger.LogError(requestID, 0, []byte(err.Error()), history)
			}
			return nil, fmt.Errorf("history validation failed (request_id=%s): %w", requestID, err)
		}
	}

	endpointURL := p.endpoint + "/v1/chat/completions"

	msgJSON := make([]map[string]any, 0, len(history))
	for _, turn := range history {
		msgJSON = append(msgJSON, map[string]any{
			"role":    string(turn.Role),
			"content": turn.Content,
		})
	}

	payload := map[string]any{
		"model":    modelID,
		"messages": msgJSON,
		"stream":   true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if p.requestLogger != nil {
		p.requestLogger.LogRequest(requestID, history, payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	startTime := time.Now()
	httpResp, err := p.client.Do(req)
	if err != nil {
		if p.requestLogger != nil {
			p.requestLogger.LogError(requestID, 0, []byte(err.Error()), history)
		}
		return nil, &core.UpstreamError{Reason: "request failed", Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()

		if p.requestLogger != nil {
			p.requestLogger.LogError(requestID, httpResp.StatusCode, bodyBytes, history)
		}

		return nil, &core.UpstreamError{
			Status: httpResp.StatusCode,
			Reason: statusReason(httpResp.StatusCode, bodyBytes),
		}
	}

	fragments := make(chan Fragment, 16)
	go p.consume(ctx, requestID, httpResp.Body, fragments, startTime)

	return fragments, nil
}

// consume reads SSE lines off the response body and forwards content
// deltas until the backend signals completion or the stream breaks.
func (p *GroqProvider) consume(
	ctx context.Context,
	requestID core.RequestID,
	body io.ReadCloser,
	fragments chan<- Fragment,
	startTime time.Time,
) {
	defer close(fragments)
	defer body.Close()

	var answer strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		text, err := parseDelta([]byte(data))
		if err != nil {
			if p.requestLogger != nil {
				p.requestLogger.LogError(requestID, 0, []byte(err.Error()), nil)
			}
			send(ctx, fragments, Fragment{Err: &core.UpstreamError{Reason: "malformed stream", Err: err}})
			return
		}

		if text == "" {
			continue
		}

		answer.WriteString(text)
		if !send(ctx, fragments, Fragment{Text: text}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			send(ctx, fragments, Fragment{Err: &core.UpstreamError{Reason: "cancelled", Err: ctx.Err()}})
			return
		}
		if p.requestLogger != nil {
			p.requestLogger.LogError(requestID, 0, []byte(err.Error()), nil)
		}
		send(ctx, fragments, Fragment{Err: &core.UpstreamError{Reason: "stream interrupted", Err: err}})
		return
	}

	if p.requestLogger != nil {
		p.requestLogger.LogCompletion(requestID, answer.String(), time.Since(startTime))
	}
}

// send delivers a fragment unless the caller has gone away.
func send(ctx context.Context, fragments chan<- Fragment, frag Fragment) bool {
	select {
	case fragments <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func parseDelta(data []byte) (string, error) {
	var chunk streamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", fmt.Errorf("bad chunk: %w", err)
	}

	// Housekeeping chunks carry no choices; skip them.
	if len(chunk.Choices) == 0 {
		return "", nil
	}

	return chunk.Choices[0].Delta.Content, nil
}

func statusReason(status int, body []byte) string {
	switch status {
	case http.StatusTooManyRequests:
		return "rate limited"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication failed"
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		return trimmed
	}
	return http.StatusText(status)
}
