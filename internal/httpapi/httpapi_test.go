package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sentineld/sentinel/internal/events"
	"github.com/sentineld/sentinel/internal/executor"
	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/heartbeat"
	"github.com/sentineld/sentinel/internal/memory"
	"github.com/sentineld/sentinel/internal/persona"
	"github.com/sentineld/sentinel/internal/prepipeline"
	"github.com/sentineld/sentinel/internal/proactive"
	"github.com/sentineld/sentinel/internal/router"
	"github.com/sentineld/sentinel/internal/skills"
	"github.com/sentineld/sentinel/internal/store"
)

// scriptedProvider returns a fixed reply for every completion call — the
// same fake used across the heartbeat and proactive packages' tests.
type scriptedProvider struct {
	reply string
}

func (p *scriptedProvider) Complete(ctx context.Context, req gateway.LLMRequest) (*gateway.LLMResponse, error) {
	return &gateway.LLMResponse{Content: p.reply, Model: "test-model"}, nil
}
func (p *scriptedProvider) Embed(ctx context.Context, text string) (*gateway.EmbedResponse, error) {
	return nil, gateway.ErrNotSupported
}
func (p *scriptedProvider) Name() string     { return "scripted" }
func (p *scriptedProvider) Models() []string { return []string{"test-model"} }

// fixedLister reports a single installed model regardless of what the
// router asks for, so routing is deterministic in tests without an
// Ollama daemon.
type fixedLister struct{ models []string }

func (f fixedLister) List(ctx context.Context) ([]string, error) { return f.models, nil }

func newTestServer(t *testing.T, reply string) *Server {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ltm, err := memory.NewLongTermMemory(filepath.Join(t.TempDir(), "mem.db"))
	if err != nil {
		t.Fatalf("NewLongTermMemory: %v", err)
	}
	t.Cleanup(func() { ltm.Close() })
	facts, err := memory.NewUserFacts(ltm.DB())
	if err != nil {
		t.Fatalf("NewUserFacts: %v", err)
	}

	gw := gateway.New(nil, nil, &scriptedProvider{reply: reply})
	reg := skills.NewSkillRegistry()
	exec := executor.New(gw, reg, nil, nil)
	rtr := router.NewDynamicRouterWithLister(fixedLister{models: []string{"test-model"}})
	sink := events.NewSink()
	hb := heartbeat.New(st, reg, exec, gw, sink, nil, nil, heartbeat.DefaultConfig())
	pers := persona.New(filepath.Join(t.TempDir(), "persona.json"))
	pro := proactive.New(gw, facts, nil)

	return &Server{deps: Deps{
		Store:     st,
		Exec:      exec,
		Gateway:   gw,
		Router:    rtr,
		Persona:   pers,
		Heartbeat: hb,
		Facts:     facts,
		Proactive: pro,
		Sink:      sink,
		Log:       nil,
	}}
}

func newRouterServer(t *testing.T, reply string) (*Server, http.Handler) {
	t.Helper()
	s := newTestServer(t, reply)
	srv := NewServer(":0", s.deps)
	return srv, srv.httpServer.Handler
}

func TestHandleHealth(t *testing.T) {
	_, h := newRouterServer(t, "FINAL: ok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHandleCreateAndListTasks(t *testing.T) {
	_, h := newRouterServer(t, "FINAL: ok")

	body, _ := json.Marshal(createTaskRequest{Title: "Water the plants", TaskType: "custom"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if rr2.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr2.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	tasks, _ := out["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d (%v)", len(tasks), out)
	}
}

func TestHandleCancelTask(t *testing.T) {
	s := newTestServer(t, "FINAL: ok")
	id, err := s.deps.Store.Add(context.Background(), store.NewTaskParams{Title: "to cancel", TaskType: store.TaskCustom})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	srv := NewServer(":0", s.deps)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil)
	srv.httpServer.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestHandlePersonalityRoundTrip(t *testing.T) {
	_, h := newRouterServer(t, "FINAL: ok")

	cfg := persona.DefaultConfig()
	cfg.Name = "Orion"
	body, _ := json.Marshal(cfg)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/personality", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/personality", nil))
	var got persona.Config
	if err := json.Unmarshal(rr2.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Orion" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestHandleProfile(t *testing.T) {
	s := newTestServer(t, "FINAL: ok")
	s.deps.Facts.Store("name", "Dana", 0.9, "heuristic")
	srv := NewServer(":0", s.deps)

	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHandleChat_StreamsFinalEvent(t *testing.T) {
	_, h := newRouterServer(t, "FINAL: Hello there, happy to help.")

	body, _ := json.Marshal(chatRequest{Message: "hi"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	out := rr.Body.String()
	if !bytes.Contains([]byte(out), []byte("event: final")) {
		t.Fatalf("expected a final event in SSE stream, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("quick_ack")) {
		t.Fatalf("expected a quick_ack event, got: %s", out)
	}
}

func TestHandleChat_RejectsEmptyMessage(t *testing.T) {
	_, h := newRouterServer(t, "FINAL: ok")

	body, _ := json.Marshal(chatRequest{Message: "  "})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHandleProactiveSuggestions(t *testing.T) {
	_, h := newRouterServer(t, `[]`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/proactive", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHandleEvents_SendsConnectedEvent(t *testing.T) {
	s := newTestServer(t, "FINAL: ok")
	srv := NewServer(":0", s.deps)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	srv.httpServer.Handler.ServeHTTP(rr, req)

	if !bytes.Contains(rr.Body.Bytes(), []byte("connected")) {
		t.Fatalf("expected connected event, got: %s", rr.Body.String())
	}
}
