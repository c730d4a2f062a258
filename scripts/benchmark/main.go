package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/filmcard/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "filmcard API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Title pages covering a feature, a series, an old film, an unreleased
// title and the mobile host.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Feature", "https://www.imdb.com/title/tt0113277/"},
	{"Series", "https://www.imdb.com/title/tt0903747/"},
	{"Classic", "https://www.imdb.com/title/tt0034583/"},
	{"Upcoming", "https://www.imdb.com/title/tt9362722/"},
	{"Mobile", "https://m.imdb.com/title/tt0110912/"},
}

// fieldCount is the number of card fields scored for completeness.
const fieldCount = 6

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	NavigationMs int64  `json:"navigation_ms"`
	ScrapeMs     int64  `json:"scrape_ms"`
	CacheStatus  string `json:"cache_status,omitempty"`
	FieldsFound  int    `json:"fields_found"`
	Title        string `json:"title,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs      float64 `json:"total_ms"`
	NavigationMs float64 `json:"navigation_ms"`
	ScrapeMs     float64 `json:"scrape_ms"`
	Completeness float64 `json:"completeness_percent"`
	CacheHits    int     `json:"cache_hits"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== filmcard Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Start filmcard with API_ENABLED=true first\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	client := &http.Client{Timeout: 90 * time.Second}
	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(client, t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d/%d fields  cache=%s\n", rr.TotalMs, rr.FieldsFound, fieldCount, rr.CacheStatus)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

func benchmarkURL(client *http.Client, url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(models.PreviewRequest{URL: url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/preview", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var pr models.PreviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = pr.Success
	rr.TotalMs = pr.Timing.TotalMs
	rr.NavigationMs = pr.Timing.NavigationMs
	rr.ScrapeMs = pr.Timing.ScrapeMs
	rr.CacheStatus = pr.CacheStatus
	if pr.Fields != nil {
		rr.Title = pr.Fields.Title
		rr.FieldsFound = countFields(*pr.Fields)
	}
	if pr.Error != nil {
		rr.Error = pr.Error.Message
	}
	return rr
}

func countFields(f models.Fields) int {
	n := 0
	for _, s := range []string{f.Title, f.ImageURL, f.Description, f.Rating, f.Duration} {
		if s != "" {
			n++
		}
	}
	if len(f.Genres) > 0 {
		n++
	}
	return n
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.NavigationMs += float64(r.NavigationMs)
		avg.ScrapeMs += float64(r.ScrapeMs)
		avg.Completeness += float64(r.FieldsFound) / fieldCount * 100
		if r.CacheStatus == "hit" {
			avg.CacheHits++
		}
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.NavigationMs /= n
	avg.ScrapeMs /= n
	avg.Completeness /= n
	return &avg
}

func printTable(results []urlResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Label", "URL", "Avg Total", "Avg Nav", "Avg Scrape", "Fields", "Cache Hits"})

	for _, r := range results {
		if r.Averages == nil {
			t.AppendRow(table.Row{r.Label, truncateURL(r.URL, 40), "FAILED", "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			r.Label,
			truncateURL(r.URL, 40),
			fmt.Sprintf("%dms", int64(r.Averages.TotalMs)),
			fmt.Sprintf("%dms", int64(r.Averages.NavigationMs)),
			fmt.Sprintf("%dms", int64(r.Averages.ScrapeMs)),
			fmt.Sprintf("%.0f%%", r.Averages.Completeness),
			fmt.Sprintf("%d/%d", r.Averages.CacheHits, len(r.Runs)),
		})
	}
	t.Render()
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
