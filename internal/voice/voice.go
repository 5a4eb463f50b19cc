// Package voice turns finished answers into speech audio. Synthesis is
// strictly best-effort: a failure here is logged by the caller and never
// affects the already-delivered text answer.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/volnat/murmur/internal/core"
)

// Synthesizer renders text as encoded speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// HTTPSynthesizer calls a TTS service that accepts JSON requests with the
// text and a detected language code, and answers with raw audio bytes.
type HTTPSynthesizer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSynthesizer(endpoint string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &HTTPSynthesizer{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.SynthesisError{Err: errors.New("empty text")}
	}

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"language": DetectLanguage(text),
	})
	if err != nil {
		return nil, &core.SynthesisError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, &core.SynthesisError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, &core.SynthesisError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		return nil, &core.SynthesisError{
			Err: fmt.Errorf("tts error: %s: %s", httpResp.Status, strings.TrimSpace(string(bodyBytes))),
		}
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &core.SynthesisError{Err: err}
	}

	if len(audio) == 0 {
		return nil, &core.SynthesisError{Err: errors.New("empty audio response")}
	}

	return audio, nil
}
