// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

func scrapeTestServer(t *testing.T, statusCode int, body string, captured *scrapeRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing Bearer authorization header")
		}
		w.WriteHeader(statusCode)
		w.Write([]byte(body))
	}))
}

func TestFetch_ReturnsMarkdown(t *testing.T) {
	var got scrapeRequest
	ts := scrapeTestServer(t, http.StatusOK,
		`{"success":true,"data":{"markdown":"# Title\n\nBody text."}}`, &got)
	defer ts.Close()
	oldBase := scrapeAPIBase
	scrapeAPIBase = ts.URL
	defer func() { scrapeAPIBase = oldBase }()

	c := &Client{APIKey: "fc-key", HTTP: ts.Client()}
	text, err := c.Fetch(context.Background(), "https://example.org/article")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if text != "# Title\n\nBody text." {
		t.Errorf("text = %q", text)
	}
	if got.URL != "https://example.org/article" {
		t.Errorf("request url = %q", got.URL)
	}
	if len(got.Formats) != 1 || got.Formats[0] != "markdown" {
		t.Errorf("request formats = %v, want [markdown]", got.Formats)
	}
}

func TestFetch_TruncatesToLimit(t *testing.T) {
	long := strings.Repeat("a", 500)
	ts := scrapeTestServer(t, http.StatusOK,
		`{"success":true,"data":{"markdown":"`+long+`"}}`, nil)
	defer ts.Close()
	oldBase := scrapeAPIBase
	scrapeAPIBase = ts.URL
	defer func() { scrapeAPIBase = oldBase }()

	c := &Client{
		APIKey: "fc-key",
		Config: types.FetchConfig{MaxContentChars: 100},
		HTTP:   ts.Client(),
	}
	text, err := c.Fetch(context.Background(), "https://example.org/long")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(text) != 100 {
		t.Errorf("len(text) = %d, want 100", len(text))
	}
}

func TestFetch_ScrapeFailure(t *testing.T) {
	ts := scrapeTestServer(t, http.StatusOK,
		`{"success":false,"error":"page blocked"}`, nil)
	defer ts.Close()
	oldBase := scrapeAPIBase
	scrapeAPIBase = ts.URL
	defer func() { scrapeAPIBase = oldBase }()

	c := &Client{APIKey: "fc-key", HTTP: ts.Client()}
	_, err := c.Fetch(context.Background(), "https://example.org/blocked")
	if err == nil || !strings.Contains(err.Error(), "page blocked") {
		t.Errorf("err = %v, want scrape failure with reason", err)
	}
}

func TestFetch_EmptyMarkdown(t *testing.T) {
	ts := scrapeTestServer(t, http.StatusOK, `{"success":true,"data":{"markdown":""}}`, nil)
	defer ts.Close()
	oldBase := scrapeAPIBase
	scrapeAPIBase = ts.URL
	defer func() { scrapeAPIBase = oldBase }()

	c := &Client{APIKey: "fc-key", HTTP: ts.Client()}
	if _, err := c.Fetch(context.Background(), "https://example.org/empty"); err == nil {
		t.Fatal("expected error for empty markdown")
	}
}

func TestFetch_AuthorizationError(t *testing.T) {
	ts := scrapeTestServer(t, http.StatusPaymentRequired, `{"error":"insufficient credits"}`, nil)
	defer ts.Close()
	oldBase := scrapeAPIBase
	scrapeAPIBase = ts.URL
	defer func() { scrapeAPIBase = oldBase }()

	c := &Client{APIKey: "fc-key", HTTP: ts.Client()}
	_, err := c.Fetch(context.Background(), "https://example.org/x")
	if !errors.Is(err, httputil.ErrAuthorization) {
		t.Errorf("err = %v, want ErrAuthorization", err)
	}
}

func TestFetch_EmptyURL(t *testing.T) {
	c := &Client{APIKey: "fc-key"}
	if _, err := c.Fetch(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestTruncate_RuneSafety(t *testing.T) {
	// "héllo" cut inside the two-byte é must back off to a valid boundary.
	s := "héllo"
	got := truncate(s, 2)
	if got != "h" {
		t.Errorf("truncate() = %q, want %q", got, "h")
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
}
