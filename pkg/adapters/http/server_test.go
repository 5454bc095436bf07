package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/testutils"
	canopyhttp "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
)

func newMachine(t *testing.T) *canopy.Machine {
	t.Helper()
	m := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
	m.Register(testutils.SampleTree(nil)...)
	require.NoError(t, m.Assemble())
	return m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestQueries(t *testing.T) {
	m := newMachine(t)
	h := canopyhttp.NewHandler(m)

	t.Run("States", func(t *testing.T) {
		w := do(t, h, "GET", "/states", "")
		require.Equal(t, http.StatusOK, w.Code)

		var states []domain.StateInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
		require.Len(t, states, 8)
		assert.Equal(t, domain.RootStateID, states[0].Name)
	})

	t.Run("State", func(t *testing.T) {
		w := do(t, h, "GET", "/states/B", "")
		require.Equal(t, http.StatusOK, w.Code)

		var info domain.StateInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, domain.StateInfo{Name: "B", Parent: "A", Children: []string{"B1", "C"}}, info)
	})

	t.Run("Unknown state", func(t *testing.T) {
		w := do(t, h, "GET", "/states/ghost", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Current", func(t *testing.T) {
		w := do(t, h, "GET", "/current", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"current":"root"}`, w.Body.String())
	})

	t.Run("Graph", func(t *testing.T) {
		w := do(t, h, "GET", "/graph", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "graph TD")
		assert.Contains(t, w.Body.String(), "class root current;")
	})

	t.Run("Info and health", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(t, h, "GET", "/health", "").Code)

		w := do(t, h, "GET", "/info", "")
		assert.Contains(t, w.Body.String(), `"app":"canopy-http"`)
	})

	t.Run("CORS preflight", func(t *testing.T) {
		w := do(t, h, "OPTIONS", "/transitions", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestPostTransition(t *testing.T) {
	m := newMachine(t)
	h := canopyhttp.NewHandler(m)

	w := do(t, h, "POST", "/transitions", `{"target":"C1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"from":"root","to":"C1"}`, w.Body.String())
	assert.Equal(t, "C1", m.CurrentStateID())

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/transitions", `{"target":"ghost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/transitions", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/transitions", `{}`).Code)
}

func TestPostTransition_AsyncAndConflict(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	m := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
	m.Contribute(canopy.RootStateID, func(p *dsl.Node) error {
		return p.Attach(canopy.State("loading", dsl.EnterAsync(func(ctx context.Context, from, to string) error {
			close(entered)
			<-release
			return nil
		})))
	})
	m.Contribute(canopy.RootStateID, func(p *dsl.Node) error { return p.Attach(canopy.State("menu")) })
	require.NoError(t, m.Assemble())

	done := make(chan struct{})
	m.Subscribe(func(from, to string) {
		if to == "loading" {
			close(done)
		}
	})

	h := canopyhttp.NewHandler(m)

	w := do(t, h, "POST", "/transitions", `{"target":"loading","async":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	<-entered

	w = do(t, h, "POST", "/transitions", `{"target":"menu"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", "/transitions", `{"target":"menu","async":true}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	<-done
	assert.Equal(t, "loading", m.CurrentStateID())
}

func TestSubscribeEvents(t *testing.T) {
	m := newMachine(t)
	server := canopyhttp.NewServer(m)
	defer server.Close()

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		return ""
	}

	require.Equal(t, "connected", readData())
	require.Eventually(t, func() bool { return server.Streams.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, m.ChangeState("A2"))

	var event domain.TransitionEvent
	require.NoError(t, json.Unmarshal([]byte(readData()), &event))
	assert.Equal(t, domain.EventTransition, event.Type)
	assert.Equal(t, "root", event.From)
	assert.Equal(t, "A2", event.To)
}

func TestStreamManager(t *testing.T) {
	sm := canopyhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Len())

	sm.Broadcast("hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Len())
	_, open := <-ch
	assert.False(t, open)
}

func TestStreamManager_SlowClientLogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	srv := canopyhttp.NewServer(newMachine(t), canopyhttp.WithLogger(logger))
	defer srv.Close()

	_, cancel := srv.Streams.Subscribe()
	defer cancel()
	for i := 0; i < 11; i++ {
		srv.Streams.Broadcast("tick")
	}
	assert.Contains(t, buf.String(), "Client buffer full")
}
