package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the filmcard API error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// previewResponse mirrors the filmcard preview API response.
type previewResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Fields  *struct {
		Title       string   `json:"title"`
		ImageURL    string   `json:"image_url"`
		Description string   `json:"description"`
		Rating      string   `json:"rating"`
		Duration    string   `json:"duration"`
		Genres      []string `json:"genres"`
	} `json:"fields"`
	CacheStatus string `json:"cache_status"`
	Timing      struct {
		TotalMs int64 `json:"total_ms"`
	} `json:"timing"`
	Error *apiError `json:"error"`
}

// healthResponse mirrors the filmcard health API response.
type healthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	CacheEntries int    `json:"cache_entries"`
	Version      string `json:"version"`
	BrowserStats struct {
		MaxBrowsers    int `json:"max_browsers"`
		ActiveBrowsers int `json:"active_browsers"`
	} `json:"browser_stats"`
}

func main() {
	apiURL := os.Getenv("FILMCARD_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("FILMCARD_API_KEY")

	s := server.NewMCPServer(
		"filmcard",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	previewTool := mcp.NewTool("preview_title",
		mcp.WithDescription("Look up an IMDb title page and return its title, rating, runtime, genres, poster and plot summary, exactly as the filmcard bot would show them."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("IMDb title page URL, e.g. https://www.imdb.com/title/tt0113277/"),
		),
	)
	s.AddTool(previewTool, handlePreviewTitle(apiURL, apiKey))

	healthTool := mcp.NewTool("filmcard_health",
		mcp.WithDescription("Report whether the filmcard bot is healthy and how many browsers it is running."),
	)
	s.AddTool(healthTool, handleHealth(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the filmcard API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handlePreviewTitle(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 90 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/preview", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("preview request failed: %v", err)), nil
		}

		var resp previewResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "preview failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatPreview(resp)), nil
	}
}

func handleHealth(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/health", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("health request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		var h healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Status: %s (version %s, up %s)\nBrowsers: %d/%d active\nCached titles: %d",
			h.Status, h.Version, h.Uptime,
			h.BrowserStats.ActiveBrowsers, h.BrowserStats.MaxBrowsers,
			h.CacheEntries,
		)), nil
	}
}

// formatPreview renders the scraped fields as plain text, omitting the ones
// the page did not provide.
func formatPreview(resp previewResponse) string {
	var sb strings.Builder
	if resp.Fields == nil {
		return "No fields returned for " + resp.URL
	}
	f := resp.Fields

	fmt.Fprintf(&sb, "Title: %s\nSource: %s\n", f.Title, resp.URL)
	if f.Rating != "" {
		fmt.Fprintf(&sb, "Rating: %s/10\n", f.Rating)
	}
	if f.Duration != "" {
		fmt.Fprintf(&sb, "Duration: %s\n", f.Duration)
	}
	if len(f.Genres) > 0 {
		fmt.Fprintf(&sb, "Genres: %s\n", strings.Join(f.Genres, ", "))
	}
	if f.ImageURL != "" {
		fmt.Fprintf(&sb, "Poster: %s\n", f.ImageURL)
	}
	if f.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", strings.TrimSpace(f.Description))
	}
	if resp.CacheStatus != "" {
		fmt.Fprintf(&sb, "\n---\nCache: %s, %d ms", resp.CacheStatus, resp.Timing.TotalMs)
	}
	return sb.String()
}
