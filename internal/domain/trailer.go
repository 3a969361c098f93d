package domain

// Trailer identifies a video that can be embedded in the detail view.
type Trailer struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title,omitempty"`
}

// EmbedURL returns the player URL for the trailer, or "" when no video was found.
func (t Trailer) EmbedURL() string {
	if t.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + t.VideoID
}
