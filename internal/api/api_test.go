package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/concierge/internal/api"
	"github.com/JaimeStill/concierge/internal/config"
	"github.com/JaimeStill/concierge/internal/infrastructure"
	"github.com/JaimeStill/concierge/internal/migrations"
	"github.com/JaimeStill/concierge/internal/workflow"
	"github.com/JaimeStill/concierge/pkg/database"
	"github.com/JaimeStill/concierge/pkg/llm"
	"github.com/JaimeStill/concierge/pkg/middleware"
	"github.com/JaimeStill/concierge/pkg/module"
	"github.com/JaimeStill/concierge/pkg/openapi"
	"github.com/JaimeStill/concierge/pkg/pagination"
)

// fakeOpenAI answers chat completions: schema requests get a classification
// keyed on the message text, free-text requests get a short reply.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)

		content := "Thank you for reaching out."
		if bytes.Contains(body, []byte("json_schema")) {
			label := "positive_feedback"
			switch {
			case bytes.Contains(body, []byte("declined")):
				label = "negative_feedback"
			case bytes.Contains(body, []byte("status of ticket")):
				label = "query"
			}
			out, _ := json.Marshal(map[string]any{
				"classified_type": label,
				"confidence":      0.93,
				"reasoning":       "clear sentiment",
				"extracted_topic": "card",
			})
			content = string(out)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   llm.DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Database: database.Config{
			Driver:      database.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "concierge.db"),
			ConnTimeout: "5s",
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "64KB",
			CORS:        middleware.CORSConfig{Enabled: false},
			OpenAPI:     openapi.Config{Title: "Concierge API"},
			Pagination:  pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		},
		Agent: llm.Config{
			APIKey:      "sk-test",
			BaseURL:     baseURL + "/v1/",
			Model:       llm.DefaultModel,
			Timeout:     "5s",
			MaxAttempts: 1,
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
	if err := cfg.Workflow.Finalize(nil); err != nil {
		t.Fatalf("workflow finalize: %v", err)
	}
	return cfg
}

func setup(t *testing.T) (*config.Config, *infrastructure.Infrastructure) {
	t.Helper()

	cfg := validConfig(t, fakeOpenAI(t).URL)
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() { infra.Database.Connection().Close() })

	if err := migrations.Up(infra.Database.Connection(), cfg.Database.Driver); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return cfg, infra
}

func newRouter(t *testing.T) *module.Router {
	t.Helper()

	cfg, infra := setup(t)
	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(m)
	return router
}

func TestNewModule(t *testing.T) {
	cfg, infra := setup(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewRuntime(t *testing.T) {
	cfg, infra := setup(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Workflow.ConfidenceThreshold != workflow.DefaultConfidenceThreshold {
		t.Errorf("threshold: got %v", runtime.Workflow.ConfidenceThreshold)
	}
	if runtime.Boundary.Timeout != cfg.Agent.TimeoutDuration() {
		t.Errorf("boundary timeout: got %s", runtime.Boundary.Timeout)
	}
	if runtime.Logger == nil || runtime.Database == nil || runtime.Agent == nil || runtime.Lifecycle == nil {
		t.Error("runtime missing infrastructure")
	}
}

func TestNewDomain(t *testing.T) {
	cfg, infra := setup(t)

	domain := api.NewDomain(api.NewRuntime(cfg, infra))

	if domain.Tickets == nil {
		t.Error("tickets system is nil")
	}
	if domain.Interactions == nil {
		t.Error("interactions system is nil")
	}
	if domain.Messages == nil {
		t.Error("messages system is nil")
	}
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMessageFlow(t *testing.T) {
	router := newRouter(t)

	rec := post(t, router, "/api/messages",
		`{"message":"My debit card was declined at the store","customer_id":"CUST001","customer_name":"Alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	var result workflow.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Classification != workflow.ClassNegative || result.AgentName != workflow.AgentNegative {
		t.Fatalf("result = %+v, want negative feedback", result)
	}
	if result.TicketID == nil {
		t.Fatal("no ticket created")
	}
	if !strings.Contains(result.Response, *result.TicketID) {
		t.Errorf("response %q does not cite ticket", result.Response)
	}

	rec = get(t, router, "/api/tickets/"+*result.TicketID)
	if rec.Code != http.StatusOK {
		t.Fatalf("find ticket status = %d: %s", rec.Code, rec.Body.String())
	}
	var ticket struct {
		Status        string  `json:"status"`
		AgentResponse *string `json:"agent_response"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket.Status != "unresolved" {
		t.Errorf("ticket status = %s, want unresolved", ticket.Status)
	}
	if ticket.AgentResponse == nil || *ticket.AgentResponse != result.Response {
		t.Error("ticket does not carry the final response")
	}

	rec = post(t, router, "/api/messages",
		`{"message":"What is the status of ticket `+*result.TicketID+`?","customer_id":"CUST001","customer_name":"Alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d: %s", rec.Code, rec.Body.String())
	}
	var queryResult workflow.Result
	if err := json.NewDecoder(rec.Body).Decode(&queryResult); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if queryResult.AgentName != workflow.AgentQuery {
		t.Errorf("query agent = %q, want %q", queryResult.AgentName, workflow.AgentQuery)
	}
	if !strings.Contains(queryResult.Response, "currently marked as: Unresolved.") {
		t.Errorf("query response = %q", queryResult.Response)
	}

	rec = get(t, router, "/api/interactions?customer_id=CUST001")
	if rec.Code != http.StatusOK {
		t.Fatalf("list interactions status = %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("interactions total = %d, want 2", page.Total)
	}

	rec = get(t, router, "/api/interactions/stats?days=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMessageBodyLimit(t *testing.T) {
	router := newRouter(t)

	big := strings.Repeat("a", 70*1024)
	rec := post(t, router, "/api/messages",
		`{"message":"`+big+`","customer_id":"C","customer_name":"A"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestOpenAPISpec(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/api/openapi.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var spec openapi.Spec
	if err := json.NewDecoder(rec.Body).Decode(&spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}

	if spec.Info.Title != "Concierge API" || spec.Info.Version != "0.1.0" {
		t.Errorf("info = %+v", spec.Info)
	}
	for _, path := range []string{
		"/messages",
		"/tickets",
		"/tickets/statuses",
		"/tickets/{id}",
		"/tickets/{id}/status",
		"/interactions",
		"/interactions/stats",
		"/interactions/{id}",
		"/interactions/{id}/archive",
	} {
		if spec.Paths[path] == nil {
			t.Errorf("missing path %s", path)
		}
	}
	if spec.Paths["/messages"].Post == nil {
		t.Error("/messages has no POST operation")
	}
	if _, ok := spec.Components.Schemas["WorkflowResult"]; !ok {
		t.Error("missing WorkflowResult schema")
	}
}
