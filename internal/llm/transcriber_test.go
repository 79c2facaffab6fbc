package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscriber(t *testing.T, handler http.HandlerFunc) (*Transcriber, *metrics.Collector) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	mc := metrics.NewCollector()
	tr, err := NewTranscriber(TranscriberOptions{
		APIKey:  "sk-or-test",
		BaseURL: srv.URL + "/",
		Model:   "test/audio-model",
		Timeout: 5 * time.Second,
		Metrics: mc,
	})
	require.NoError(t, err)
	return tr, mc
}

func TestTranscribeRequestShape(t *testing.T) {
	var got chatRequest
	tr, mc := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Говорящий 1: Добрый день"}}],"usage":{"prompt_tokens":900,"completion_tokens":12}}`))
	})

	transcript, err := tr.Transcribe(context.Background(), []byte("OggS-data"), "ogg")
	require.NoError(t, err)
	assert.Equal(t, "Говорящий 1: Добрый день", transcript)

	assert.Equal(t, "test/audio-model", got.Model)
	require.Len(t, got.Messages, 1)
	parts := got.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, TranscribeInstruction, parts[0].Text)
	assert.Equal(t, "input_audio", parts[1].Type)
	require.NotNil(t, parts[1].InputAudio)
	assert.Equal(t, "ogg", parts[1].InputAudio.Format)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("OggS-data")), parts[1].InputAudio.Data)

	snap := mc.Snapshot()
	require.NotNil(t, snap.Transcribe)
	assert.Equal(t, int64(900), *snap.Transcribe.TotalInputTokens)
}

func TestTranscribeReturnsContentVerbatim(t *testing.T) {
	tr, _ := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  line one\n\nline two  "}}]}`))
	})

	transcript, err := tr.Transcribe(context.Background(), []byte("a"), "ogg")
	require.NoError(t, err)
	assert.Equal(t, "  line one\n\nline two  ", transcript)
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		fatal   bool
		message string
	}{
		{"server error", http.StatusBadGateway, `upstream down`, false, "status 502"},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found"}}`, true, "status 401"},
		{"missing choices", http.StatusOK, `{"choices":[]}`, false, "no message content"},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`, false, "no message content"},
		{"error object", http.StatusOK, `{"error":{"message":"Rate limit exceeded","code":429}}`, true, "Rate limit"},
		{"invalid json", http.StatusOK, `not json`, false, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := tr.Transcribe(context.Background(), []byte("audio"), "ogg")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, tt.fatal, IsFatal(err))
		})
	}
}

func TestTranscribeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	tr, err := NewTranscriber(TranscriberOptions{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), []byte("audio"), "ogg")
	assert.Error(t, err)
}

func TestNewTranscriberRequiresKey(t *testing.T) {
	_, err := NewTranscriber(TranscriberOptions{})
	assert.Error(t, err)
}

func TestTranscribeEmptyAudio(t *testing.T) {
	tr, _ := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for empty audio")
	})
	_, err := tr.Transcribe(context.Background(), nil, "ogg")
	assert.Error(t, err)
}
