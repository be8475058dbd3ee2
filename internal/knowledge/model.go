// Package knowledge maintains the local YouTube metadata knowledge base.
package knowledge

import "time"

// Video is one collected video record.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	Duration     string    `json:"duration,omitempty"` // ISO 8601 as reported by the API
	CollectedAt  time.Time `json:"collected_at"`

	Analysis *Analysis `json:"analysis,omitempty"`
}

// Analysis is the optional LLM summary attached to a video.
type Analysis struct {
	Summary    string    `json:"summary"`
	Model      string    `json:"model"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Playlist is one collected playlist record.
type Playlist struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channel_title"`
	ItemCount    int       `json:"item_count"`
	VideoIDs     []string  `json:"video_ids"`
	CollectedAt  time.Time `json:"collected_at"`
}
