package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/recordings", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "c1", r.FormValue("client_id"))
		assert.Equal(t, "e1", r.FormValue("employee_id"))
		assert.Equal(t, "teacher", r.FormValue("employee_role"))

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "lesson.mp3", header.Filename)
		assert.Equal(t, "audio-bytes", string(data))

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"r1","status":"pending","client_id":"c1"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "lesson.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))

	c := New(srv.URL)
	rec, err := c.SubmitFile(context.Background(), path, SubmitInput{ClientID: "c1", EmployeeID: "e1", EmployeeRole: "teacher"})
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "pending", rec.Status)
}

func TestSubmitPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "calls/1.ogg", body["audio_path"])
		assert.Equal(t, "sales_manager", body["employee_role"])
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"r2","status":"pending"}`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL).SubmitPath(context.Background(), "calls/1.ogg",
		SubmitInput{ClientID: "c1", EmployeeID: "e1", EmployeeRole: "sales_manager"})
	require.NoError(t, err)
	assert.Equal(t, "r2", rec.ID)
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"recording not found: nope"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetStatus(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "recording not found")
}

func TestListRecordingsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "done", r.URL.Query().Get("status"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"r1","status":"done","score":8}]`))
	}))
	defer srv.Close()

	recs, err := New(srv.URL).ListRecordings(context.Background(), ListOptions{Status: "done", Limit: 50})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Score)
	assert.Equal(t, 8, *recs[0].Score)
}

func TestSetSetting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/settings/prompt_teacher", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"value":"Оцени урок."}`, string(body))
		_, _ = w.Write([]byte(`{"key":"prompt_teacher","value":"Оцени урок."}`))
	}))
	defer srv.Close()

	s, err := New(srv.URL).SetSetting(context.Background(), "prompt_teacher", "Оцени урок.")
	require.NoError(t, err)
	assert.Equal(t, "Оцени урок.", s.Value)
}

func TestWaitForTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "transcribing"
		if calls.Add(1) >= 3 {
			status = "done"
		}
		_, _ = w.Write([]byte(`{"id":"r1","status":"` + status + `"}`))
	}))
	defer srv.Close()

	var polled []string
	view, err := New(srv.URL).WaitForTerminal(context.Background(), "r1", WaitOptions{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		OnPoll:          func(v StatusView) { polled = append(polled, v.Status) },
	})
	require.NoError(t, err)
	assert.Equal(t, "done", view.Status)
	assert.Equal(t, []string{"transcribing", "transcribing", "done"}, polled)
}

func TestWaitForTerminalNotFoundStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"recording not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).WaitForTerminal(context.Background(), "r1", WaitOptions{InitialInterval: time.Millisecond})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWaitForTerminalTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"r1","status":"analyzing"}`))
	}))
	defer srv.Close()

	view, err := New(srv.URL).WaitForTerminal(context.Background(), "r1", WaitOptions{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      20 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last status analyzing")
	assert.Equal(t, "analyzing", view.Status)
}

func TestWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recordings/r1/watch", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, s := range []string{"pending", "transcribing", "analyzing", "done"} {
			require.NoError(t, conn.WriteJSON(StatusView{ID: "r1", Status: s}))
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}))
	defer srv.Close()

	var seen []string
	final, err := New(srv.URL).Watch(context.Background(), "r1", func(v StatusView) error {
		seen = append(seen, v.Status)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", final.Status)
	assert.Equal(t, []string{"pending", "transcribing", "analyzing", "done"}, seen)
}

func TestWatchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(strings.TrimSuffix(srv.URL, "/")).Watch(context.Background(), "r1", nil)
	assert.True(t, IsNotFound(err))
}
