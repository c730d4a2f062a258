package models

// PreviewRequest is the payload for POST /api/v1/preview.
type PreviewRequest struct {
	// URL is the IMDb title page to render as a card. Required.
	URL string `json:"url" binding:"required,url"`
}
