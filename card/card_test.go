package card

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/use-agent/filmcard/models"
)

var author = models.Author{ID: "1001", GlobalName: "Vincent", Username: "vhanna", Avatar: "abc123"}

func TestBuild_AlwaysOnFields(t *testing.T) {
	e := Build(models.Fields{}, "https://www.imdb.com/title/tt0113277/", author)

	if e.URL != "https://www.imdb.com/title/tt0113277/" {
		t.Errorf("URL = %q", e.URL)
	}
	if e.Color != 0xF5C518 {
		t.Errorf("Color = %#x", e.Color)
	}
	if e.Author == nil {
		t.Fatal("author must always be set")
	}
	if e.Thumbnail != nil {
		t.Errorf("Thumbnail = %+v, want none without an image URL", e.Thumbnail)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), `"thumbnail"`) {
		t.Errorf("empty card serializes a thumbnail: %s", raw)
	}
	if e.Author.Name != "Vincent" {
		t.Errorf("Author.Name = %q", e.Author.Name)
	}
	if e.Author.IconURL != "https://cdn.discordapp.com/avatars/1001/abc123.png" {
		t.Errorf("Author.IconURL = %q", e.Author.IconURL)
	}
	if len(e.Fields) != 0 || e.Description != "" {
		t.Errorf("empty fields produced optional content: %+v", e)
	}
}

func TestBuild_AuthorFallsBackToUsername(t *testing.T) {
	e := Build(models.Fields{}, "u", models.Author{ID: "1", Username: "neil"})
	if e.Author.Name != "neil" {
		t.Errorf("Author.Name = %q, want neil", e.Author.Name)
	}
	if e.Author.IconURL != "" {
		t.Errorf("IconURL = %q, want empty without avatar", e.Author.IconURL)
	}
}

func TestBuild_GenresAndDescription(t *testing.T) {
	e := Build(models.Fields{
		Title:       "Heat (1995) - IMDb",
		ImageURL:    "https://m.media-amazon.com/heat.jpg",
		Description: "A group of thieves.",
		Genres:      []string{"Action", "Crime", "Drama"},
	}, "u", author)

	if e.Title != "Heat (1995) - IMDb" || e.Thumbnail.URL != "https://m.media-amazon.com/heat.jpg" {
		t.Errorf("title/thumbnail = %q / %q", e.Title, e.Thumbnail.URL)
	}
	if e.Description != "A group of thieves." {
		t.Errorf("Description = %q", e.Description)
	}
	if len(e.Fields) != 1 {
		t.Fatalf("len(Fields) = %d, want 1", len(e.Fields))
	}
	if e.Fields[0].Name != "Action | Crime | Drama" || e.Fields[0].Value != "\u200b" {
		t.Errorf("genre field = %+v", e.Fields[0])
	}
}

func TestBuild_RatingDurationVariants(t *testing.T) {
	tests := []struct {
		name      string
		rating    string
		duration  string
		wantCount int
		wantName  string
		wantValue string
	}{
		{
			name:      "both",
			rating:    "8.5",
			duration:  "1h 45m",
			wantCount: 1,
			wantName:  ":star: Rating       :hourglass: Duration",
			wantValue: "\u200b \u200b \u200b \u200b  **8.5**/10" + strings.Repeat("\u00a0", 14) + " \u00a01h 45m",
		},
		{
			name:      "rating only",
			rating:    "8.5",
			wantCount: 1,
			wantName:  ":star: Rating",
			wantValue: "\u200b \u200b \u200b \u200b  **8.5**/10",
		},
		{
			name:      "duration only",
			duration:  "45m",
			wantCount: 1,
			wantName:  ":hourglass: Duration",
			wantValue: "\u200b \u200b \u200b \u200b  \u00a0\u00a0\u00a0\u00a045m",
		},
		{
			name:      "neither",
			wantCount: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Build(models.Fields{Rating: tt.rating, Duration: tt.duration}, "u", author)
			if len(e.Fields) != tt.wantCount {
				t.Fatalf("len(Fields) = %d, want %d", len(e.Fields), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			f := e.Fields[0]
			if f.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", f.Name, tt.wantName)
			}
			if f.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", f.Value, tt.wantValue)
			}
			if !f.Inline {
				t.Error("rating/duration field must be inline")
			}
		})
	}
}

func TestAddLeftSpaces(t *testing.T) {
	tests := []struct {
		in       string
		wantFill int
	}{
		{"45m", 4},
		{"1h 45m", 1},
		{"2h", 5},
		{"10h 45m", 0},
		{"100h 45m", 0},
	}
	for _, tt := range tests {
		got := AddLeftSpaces(tt.in)
		if !strings.HasSuffix(got, tt.in) {
			t.Errorf("AddLeftSpaces(%q) = %q, lost the input", tt.in, got)
		}
		fill := strings.TrimSuffix(got, tt.in)
		if fill != strings.Repeat("\u00a0", tt.wantFill) {
			t.Errorf("AddLeftSpaces(%q) fill = %q, want %d NBSP", tt.in, fill, tt.wantFill)
		}
		if n := utf8.RuneCountInString(got); n < 7 {
			t.Errorf("AddLeftSpaces(%q) width = %d, want >= 7", tt.in, n)
		}
	}
}
