package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/metrics"
)

const (
	// DefaultOpenRouterBaseURL is the OpenAI-compatible OpenRouter API root.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTranscribeModel accepts input_audio content parts.
	DefaultTranscribeModel = "google/gemini-2.0-flash-exp:free"

	// DefaultTranscribeTimeout bounds one transcription request.
	DefaultTranscribeTimeout = 5 * time.Minute

	// TranscribeInstruction asks for a literal transcript with speaker labels.
	TranscribeInstruction = "Транскрибируй это аудио. Выведи только текст разговора, без комментариев. " +
		"Если есть несколько говорящих, обозначь их как Говорящий 1, Говорящий 2 и т.д."
)

// TranscriberOptions configures a Transcriber.
type TranscriberOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Transcriber sends audio to an OpenAI-compatible chat completions endpoint
// as an input_audio content part.
type Transcriber struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewTranscriber creates a Transcriber. Zero-valued options fall back to defaults.
func NewTranscriber(opts TranscriberOptions) (*Transcriber, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key required for transcription")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenRouterBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultTranscribeModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTranscribeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Transcriber{
		apiKey:   opts.APIKey,
		endpoint: strings.TrimSuffix(opts.BaseURL, "/") + "/chat/completions",
		model:    opts.Model,
		client:   &http.Client{Timeout: opts.Timeout},
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Model returns the configured transcription model name.
func (t *Transcriber) Model() string {
	return t.model
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Transcribe returns the provider's transcript of audio verbatim.
// format is the audio subtype, e.g. "ogg".
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}

	reqBody := chatRequest{
		Model: t.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: TranscribeInstruction},
				{Type: "input_audio", InputAudio: &inputAudio{
					Data:   base64.StdEncoding.EncodeToString(audio),
					Format: format,
				}},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", wrapFatalError(fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	duration := time.Since(start)

	if chatResp.Error != nil {
		return "", wrapFatalError(fmt.Errorf("API error: %s", chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("transcribe: response has no message content")
	}

	if t.metrics != nil {
		t.metrics.RecordLLMUsage(metrics.OpTranscribe, duration, chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	}

	transcript := *chatResp.Choices[0].Message.Content
	t.logger.Debug("transcription complete",
		"model", t.model,
		"audio_bytes", len(audio),
		"transcript_len", len(transcript),
		"duration_ms", duration.Milliseconds())
	return transcript, nil
}
