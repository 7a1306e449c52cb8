package tui

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanev77/crosschat/src/aisdk"
	"github.com/shanev77/crosschat/src/chat"
	"github.com/shanev77/crosschat/src/config"
)

func testConfig(url string) config.Config {
	cfg := config.Default()
	cfg.InitiatorURL = url
	cfg.ResponderURL = url
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tagsHandler(names ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags := aisdk.TagsResponse{}
		for _, n := range names {
			tags.Models = append(tags.Models, aisdk.ModelTag{Name: n})
		}
		json.NewEncoder(w).Encode(tags)
	}
}

func TestFetchModelsFeedsEventQueue(t *testing.T) {
	server := httptest.NewServer(tagsHandler("zephyr:7b", "llama3.2:1b"))
	defer server.Close()

	m := newModel(testConfig(server.URL), discardLogger())

	m.fetchModelsCmd(0)()
	m.fetchModelsCmd(1)()

	var loads []chat.ModelsLoadedEvent
	for _, event := range m.queue.Drain() {
		if e, ok := event.(chat.ModelsLoadedEvent); ok {
			loads = append(loads, e)
		}
	}

	require.Len(t, loads, 2, "one listing event per side")
	assert.Equal(t, []string{"llama3.2:1b", "zephyr:7b"}, loads[0].Models)
	assert.Equal(t, chat.EventModelsLoaded, loads[0].GetType())
}

func TestModelEventsAdvanceToPicker(t *testing.T) {
	server := httptest.NewServer(tagsHandler("llama3.2:1b"))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.InitiatorModel = ""
	cfg.ResponderModel = ""
	m := newModel(cfg, discardLogger())

	m.fetchModelsCmd(0)()
	m.fetchModelsCmd(1)()
	m.drainEvents()

	assert.Equal(t, stagePickInitiator, m.stage)
	assert.Equal(t, []string{"llama3.2:1b"}, m.models[0])
	assert.Equal(t, []string{"llama3.2:1b"}, m.models[1])
}

func TestFetchModelsErrorSurfacesAndStillCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := newModel(testConfig(server.URL), discardLogger())

	m.fetchModelsCmd(0)()
	m.fetchModelsCmd(1)()
	m.drainEvents()

	// Both sides reported, so the picker still opens; the failures are
	// kept for display.
	assert.Equal(t, stagePickInitiator, m.stage)
	assert.Len(t, m.loadErrs, 2)
	assert.Empty(t, m.models[0])
}

func TestPullStreamsProgressThroughQueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pull", r.URL.Path)
		w.Write([]byte(`{"status":"pulling manifest"}` + "\n"))
		w.Write([]byte(`{"status":"downloading","completed":50,"total":200}` + "\n"))
	}))
	defer server.Close()

	m := newModel(testConfig(server.URL), discardLogger())

	msg := m.pullCmd(0, "llama3.2:1b")()
	done, ok := msg.(pullDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, "llama3.2:1b", done.tag)

	var lines []string
	for _, event := range m.queue.Drain() {
		if e, ok := event.(chat.PullProgressEvent); ok {
			lines = append(lines, e.Line)
		}
	}
	assert.Equal(t, []string{"pulling manifest", "downloading 25% (50/200)"}, lines)
}

func TestUnknownTagTriggersDownload(t *testing.T) {
	m := newModel(testConfig("http://127.0.0.1:11434"), discardLogger())
	m.stage = stagePickInitiator
	m.picking = 0
	m.models[0] = []string{"llama3.2:1b"}
	m.ti.SetValue("mistral:7b")

	cmd := m.handleEnter()

	require.NotNil(t, cmd, "a tag the endpoint lacks starts a download")
	assert.Equal(t, stagePulling, m.stage)
}

func TestKnownTagIsAcceptedDirectly(t *testing.T) {
	m := newModel(testConfig("http://127.0.0.1:11434"), discardLogger())
	m.stage = stagePickInitiator
	m.picking = 0
	m.models[0] = []string{"llama3.2:1b"}
	m.ti.SetValue("1")

	cmd := m.handleEnter()

	assert.Nil(t, cmd)
	assert.Equal(t, "llama3.2:1b", m.cfg.InitiatorModel)
	assert.Equal(t, stagePickResponder, m.stage)
}
