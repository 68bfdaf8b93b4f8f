package synth

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Matches the original pipeline's MP3 output: 16 kHz, 128 kbit/s, mono.
	azureOutputFormat = "audio-16khz-128kbitrate-mono-mp3"

	defaultTimeout = 30 * time.Second

	// Conservative default to stay under the service rate limits.
	defaultRequestsPerMinute = 50

	// Azure error bodies can be long HTML pages; only the head is useful.
	maxErrorDetail = 200
)

// ErrAzureCredentials indicates missing key or region.
var ErrAzureCredentials = errors.New("azure key and region are required")

// AzureConfig holds configuration for the Azure Speech engine.
type AzureConfig struct {
	Key    string
	Region string

	// Language is the synthesis language, e.g. "es-ES".
	Language string

	// Voice is the Azure voice name, e.g. "es-ES-AlvaroNeural".
	Voice string

	// Endpoint overrides the regional endpoint. Tests point this at a
	// local server.
	Endpoint string

	// Timeout per synthesis request (optional, defaults to 30s).
	Timeout time.Duration

	// RequestsPerMinute caps the request rate (optional, defaults to 50).
	RequestsPerMinute int
}

// AzureEngine synthesizes speech through the Azure Speech REST API.
type AzureEngine struct {
	endpoint string
	key      string
	language string
	voice    string

	client  *http.Client
	limiter *rate.Limiter
}

// NewAzureEngine creates an Azure Speech engine.
func NewAzureEngine(config AzureConfig) (*AzureEngine, error) {
	if config.Key == "" || (config.Region == "" && config.Endpoint == "") {
		return nil, ErrAzureCredentials
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", config.Region)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	rpm := config.RequestsPerMinute
	if rpm == 0 {
		rpm = defaultRequestsPerMinute
	}

	return &AzureEngine{
		endpoint: endpoint,
		key:      config.Key,
		language: config.Language,
		voice:    config.Voice,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}, nil
}

// Synthesize posts SSML to the speech endpoint and writes the MP3 response
// to outPath. The file is written to a temp name first and renamed into
// place, so outPath never holds a partial download.
func (e *AzureEngine) Synthesize(ctx context.Context, text, outPath string) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(e.ssml(text)))
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)
	req.Header.Set("User-Agent", "phrasesynth")

	resp, err := e.client.Do(req)
	if err != nil {
		return &Error{Reason: "request error", Details: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		return &Error{
			Reason:       fmt.Sprintf("HTTP %d", resp.StatusCode),
			CancelReason: http.StatusText(resp.StatusCode),
			Details:      strings.TrimSpace(string(detail)),
		}
	}

	return writeAudio(resp.Body, outPath)
}

// ssml wraps escaped text in the minimal speak/voice envelope Azure expects.
func (e *AzureEngine) ssml(text string) string {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(
		"<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'>%s</voice></speak>",
		e.language, e.language, e.voice, escaped.String(),
	)
}

// writeAudio streams the response body to outPath via a temp file.
func writeAudio(body io.Reader, outPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = errors.New("empty audio response")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return &Error{Reason: "audio write error", Details: err.Error()}
	}

	if err := os.Rename(tmp.Name(), outPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("unable to move audio into place: %w", err)
	}
	return nil
}
