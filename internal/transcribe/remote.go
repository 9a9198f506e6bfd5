package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultMaxRetries = 3
	remoteTimeout     = 5 * time.Minute
)

// ErrNoKeys reports a remote pool with no usable credentials. The
// orchestrator treats it as unrecoverable and downgrades the job to the
// local engine.
var ErrNoKeys = errors.New("remote pool has no API keys")

// RemotePool transcribes chunks against a remote speech-to-text API using a
// rotating set of API keys. Each attempt, including retries, takes the next
// key from the pool, so consecutive attempts for one chunk use different
// keys whenever more than one is configured.
type RemotePool struct {
	Endpoint   string
	Model      string
	MaxRetries int

	keys   *KeyPool
	client *http.Client
}

func NewRemotePool(endpoint, model string, keys []string) *RemotePool {
	return &RemotePool{
		Endpoint:   endpoint,
		Model:      model,
		MaxRetries: defaultMaxRetries,
		keys:       NewKeyPool(keys),
		client:     &http.Client{Timeout: remoteTimeout},
	}
}

// Keys reports how many API keys the pool holds.
func (p *RemotePool) Keys() int { return p.keys.Len() }

// Transcribe sends one chunk to the remote API, retrying on any request
// failure including rate limits. Retries are only worthwhile while more than
// one key exists: with a single key the first failure is terminal for the
// chunk. Exhausting the budget fails only this chunk, never the job.
func (p *RemotePool) Transcribe(ctx context.Context, chunkPath string) (ChunkTranscript, error) {
	if p.keys.Len() == 0 {
		return ChunkTranscript{}, ErrNoKeys
	}

	maxRetries := p.MaxRetries
	if p.keys.Len() == 1 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		ct, err := p.request(ctx, p.keys.Next(), chunkPath)
		if err == nil {
			return ct, nil
		}
		lastErr = err
	}
	return ChunkTranscript{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

// remoteResponse mirrors the API's transcription result. Missing fields
// decode to their zero values rather than failing the chunk.
type remoteResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (p *RemotePool) request(ctx context.Context, apiKey, chunkPath string) (ChunkTranscript, error) {
	f, err := os.Open(chunkPath)
	if err != nil {
		return ChunkTranscript{}, fmt.Errorf("opening chunk: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", p.Model); err != nil {
		return ChunkTranscript{}, err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(chunkPath))
	if err != nil {
		return ChunkTranscript{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return ChunkTranscript{}, err
	}
	if err := writer.Close(); err != nil {
		return ChunkTranscript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, body)
	if err != nil {
		return ChunkTranscript{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return ChunkTranscript{}, fmt.Errorf("calling transcription API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChunkTranscript{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ChunkTranscript{}, fmt.Errorf("rate limited (HTTP 429): %s", string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ChunkTranscript{}, fmt.Errorf("transcription API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var rr remoteResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return ChunkTranscript{}, fmt.Errorf("parsing API response: %w", err)
	}

	ct := ChunkTranscript{Text: rr.Text, Language: rr.Language}
	for _, s := range rr.Segments {
		ct.Segments = append(ct.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return ct, nil
}
