package models

// Fields holds the metadata scraped from a title page.
// Every field defaults to its zero value when extraction fails.
type Fields struct {
	Title       string   `json:"title"`
	ImageURL    string   `json:"image_url,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      string   `json:"rating,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// Author identifies who posted the trigger message.
type Author struct {
	ID         string `json:"id"`
	GlobalName string `json:"global_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// DisplayName prefers the global display name over the account username.
func (a Author) DisplayName() string {
	if a.GlobalName != "" {
		return a.GlobalName
	}
	return a.Username
}
