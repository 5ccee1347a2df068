// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// claudeTestServer serves a fixed Messages API response and captures the
// decoded request.
func claudeTestServer(t *testing.T, statusCode int, body string, captured *apiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
		}
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		w.WriteHeader(statusCode)
		w.Write([]byte(body))
	}))
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func newSession(query string) *types.ResearchSession {
	return &types.ResearchSession{ID: "s1", Query: query, MaxIterations: 5}
}

const planSearchJSON = `{
  "stop_reason": "tool_use",
  "content": [
    {"type": "tool_use", "id": "tu_1", "name": "plan_search",
     "input": {"query": "transformer attention survey", "start_date": "2023-01-01"}}
  ]
}`

const finishResearchJSON = `{
  "stop_reason": "tool_use",
  "content": [
    {"type": "tool_use", "id": "tu_2", "name": "finish_research",
     "input": {"reason": "coverage is sufficient"}}
  ]
}`

func TestPlan_SearchDirective(t *testing.T) {
	var got apiRequest
	ts := claudeTestServer(t, http.StatusOK, planSearchJSON, &got)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k", Model: "claude-test"}, HTTP: ts.Client(), Now: fixedNow}
	d, err := p.Plan(context.Background(), newSession("attention mechanisms"))
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	if d.Done {
		t.Error("directive marked done for a plan_search response")
	}
	if d.Query != "transformer attention survey" {
		t.Errorf("query = %q", d.Query)
	}
	if d.DateFrom.Format("2006-01-02") != "2023-01-01" {
		t.Errorf("date_from = %v", d.DateFrom)
	}
	if !d.DateTo.IsZero() {
		t.Errorf("date_to = %v, want zero", d.DateTo)
	}

	// Request shape: forced tool choice, both tools offered, dated system prompt.
	if got.Model != "claude-test" {
		t.Errorf("model = %q", got.Model)
	}
	if got.ToolChoice == nil || got.ToolChoice.Type != "any" {
		t.Errorf("tool_choice = %+v, want any", got.ToolChoice)
	}
	if len(got.Tools) != 2 {
		t.Errorf("got %d tools, want 2", len(got.Tools))
	}
	if !strings.Contains(got.System, "Saturday, March 14, 2026") {
		t.Errorf("system prompt missing date: %q", got.System)
	}
}

func TestPlan_FinishDirective(t *testing.T) {
	ts := claudeTestServer(t, http.StatusOK, finishResearchJSON, nil)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}
	d, err := p.Plan(context.Background(), newSession("q"))
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if !d.Done {
		t.Fatal("directive not marked done")
	}
	if d.Reason != "coverage is sufficient" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestPlan_FirstVsFollowUpPrompt(t *testing.T) {
	var got apiRequest
	ts := claudeTestServer(t, http.StatusOK, planSearchJSON, &got)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}

	s := newSession("quantum error correction")
	if _, err := p.Plan(context.Background(), s); err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if !strings.Contains(got.Messages[0].Content, "first literature search") {
		t.Error("first-iteration prompt missing opening instruction")
	}

	s.Iterations = append(s.Iterations, types.IterationRecord{
		Index:       1,
		SearchQuery: "surface codes",
		Sources: []types.SourceResult{
			{URL: "https://example.org/a", Title: "Surface Codes", Text: "Full article text."},
		},
	})
	if _, err := p.Plan(context.Background(), s); err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	content := got.Messages[0].Content
	if !strings.Contains(content, "Identify a key gap") {
		t.Error("follow-up prompt missing gap instruction")
	}
	if !strings.Contains(content, "Surface Codes") {
		t.Error("follow-up prompt missing prior findings")
	}
}

func TestPlan_NoToolCall(t *testing.T) {
	ts := claudeTestServer(t, http.StatusOK,
		`{"stop_reason":"end_turn","content":[{"type":"text","text":"I think..."}]}`, nil)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}
	if _, err := p.Plan(context.Background(), newSession("q")); err == nil {
		t.Fatal("expected error for response without tool call")
	}
}

func TestPlan_EmptyQueryRejected(t *testing.T) {
	ts := claudeTestServer(t, http.StatusOK,
		`{"content":[{"type":"tool_use","id":"tu","name":"plan_search","input":{"query":"  "}}]}`, nil)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}
	if _, err := p.Plan(context.Background(), newSession("q")); err == nil {
		t.Fatal("expected error for blank planned query")
	}
}

func TestSynthesize_JoinsTextBlocks(t *testing.T) {
	var got apiRequest
	ts := claudeTestServer(t, http.StatusOK,
		`{"content":[{"type":"text","text":"# Report"},{"type":"text","text":"Body."}]}`, &got)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	s := newSession("dark matter detection")
	s.Iterations = append(s.Iterations, types.IterationRecord{
		Index:       1,
		SearchQuery: "xenon detectors",
		Sources: []types.SourceResult{
			{URL: "https://example.org/x", Title: "XENONnT Results", Text: "Full text."},
			{URL: "https://example.org/y", Title: "Failed One", FetchError: "blocked", Excerpt: "An excerpt."},
		},
	})

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}
	report, err := p.Synthesize(context.Background(), s)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if report != "# Report\nBody." {
		t.Errorf("report = %q", report)
	}

	if got.MaxTokens != synthesisMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, synthesisMaxTokens)
	}
	if len(got.Tools) != 0 {
		t.Error("synthesis request must not offer tools")
	}
	content := got.Messages[0].Content
	if !strings.Contains(content, "XENONnT Results") {
		t.Error("synthesis prompt missing fetched source")
	}
	if !strings.Contains(content, "full-text retrieval failed: blocked") {
		t.Error("synthesis prompt missing fetch-failure note")
	}
	if !strings.Contains(content, "An excerpt.") {
		t.Error("synthesis prompt missing fallback excerpt")
	}
}

func TestSynthesize_EmptySession(t *testing.T) {
	var got apiRequest
	ts := claudeTestServer(t, http.StatusOK, `{"content":[{"type":"text","text":"Report."}]}`, &got)
	defer ts.Close()
	oldBase := messagesAPIBase
	messagesAPIBase = ts.URL
	defer func() { messagesAPIBase = oldBase }()

	p := &Planner{Config: types.AIConfig{APIKey: "k"}, HTTP: ts.Client(), Now: fixedNow}
	if _, err := p.Synthesize(context.Background(), newSession("q")); err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if !strings.Contains(got.Messages[0].Content, "No sources were collected") {
		t.Error("empty-session synthesis prompt missing no-sources note")
	}
}

func TestParseToolDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0001-01-01", false},
		{"2024-05-01", "2024-05-01", false},
		{"2024-05-01T00:00:00Z", "2024-05-01", false},
		{"May 1st", "", true},
	}
	for _, tt := range tests {
		got, err := parseToolDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseToolDate(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseToolDate(%q): %v", tt.in, err)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("parseToolDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatSource_ClipsLongContent(t *testing.T) {
	src := types.SourceResult{
		URL:   "https://example.org/a",
		Title: "Long",
		Text:  strings.Repeat("x", planExcerptChars+500),
	}
	out := formatSource(1, src, planExcerptChars)
	if !strings.HasSuffix(strings.TrimSpace(out), "...") {
		t.Error("clipped content missing ellipsis")
	}
	if len(out) > planExcerptChars+300 {
		t.Errorf("formatted source too long: %d bytes", len(out))
	}
}
