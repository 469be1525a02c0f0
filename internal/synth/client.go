package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/protocol"
)

type speakRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// speaker is owned by the worker goroutine and never shared.
type speaker struct {
	endpoint string
	client   *http.Client
	headers  http.Header
}

func newSpeaker(cfg config.SynthConfig) (*speaker, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse synth endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("synth endpoint %q must use http or https", cfg.Endpoint)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}

	return &speaker{
		endpoint: u.String(),
		client:   &http.Client{Timeout: timeout},
		headers:  headers,
	}, nil
}

// speak performs the POST and returns the audio body. A non-nil error is
// already classified for the user.
func (s *speaker) speak(ctx context.Context, speakerName, text string) ([]byte, *protocol.SynthesisError) {
	body, err := json.Marshal(speakRequest{Speaker: speakerName, Text: text})
	if err != nil {
		return nil, protocol.TransportError(fmt.Errorf("encode speak request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.TransportError(err)
	}
	httpReq.Header = s.headers.Clone()

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, protocol.TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, protocol.RemoteError(resp.Status, protocol.MessageUnreadable)
		}
		return nil, protocol.RemoteError(resp.Status, string(msg))
	}

	// A body that cannot be read counts as a failed save, like a failed write.
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, protocol.PersistenceError(fmt.Errorf("read audio: %w", err))
	}
	return audio, nil
}
