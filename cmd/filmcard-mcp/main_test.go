package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestFormatPreview(t *testing.T) {
	var resp previewResponse
	body := `{"success":true,"url":"https://www.imdb.com/title/tt0113277/",
		"fields":{"title":"Heat (1995) - IMDb","rating":"8.3","duration":"2h 50m","genres":["Action","Crime"]},
		"cache_status":"miss","timing":{"total_ms":2100}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}

	out := formatPreview(resp)
	for _, want := range []string{
		"Title: Heat (1995) - IMDb",
		"Rating: 8.3/10",
		"Duration: 2h 50m",
		"Genres: Action, Crime",
		"Cache: miss, 2100 ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Poster:") {
		t.Errorf("empty poster should be omitted:\n%s", out)
	}
}

func TestHandlePreviewTitle_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/preview" || r.Header.Get("X-API-Key") != "k" {
			t.Errorf("unexpected request %s key=%q", r.URL.Path, r.Header.Get("X-API-Key"))
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_INPUT","message":"not a title page"}}`))
	}))
	defer srv.Close()

	req := mcp.CallToolRequest{}
	req.Params.Name = "preview_title"
	req.Params.Arguments = map[string]any{"url": "https://www.imdb.com/name/nm0000199/"}

	res, err := handlePreviewTitle(srv.URL, "k")(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error result")
	}
}
