package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiBase = "https://www.googleapis.com/youtube/v3"

// videos.list accepts at most 50 ids per call.
const videoBatchSize = 50

// Collector fetches playlist and video metadata from the YouTube Data
// API v3 and writes it into a Store.
type Collector struct {
	apiKey string
	store  *Store
	http   *http.Client
	base   string
}

// NewCollector creates a Collector using apiKey.
func NewCollector(apiKey string, store *Store) (*Collector, error) {
	if apiKey == "" {
		return nil, errors.New("knowledge: YouTube API key is empty")
	}
	return &Collector{
		apiKey: apiKey,
		store:  store,
		http:   &http.Client{Timeout: 30 * time.Second},
		base:   apiBase,
	}, nil
}

// CollectPlaylist fetches a playlist, all of its item video ids, and the
// full metadata of every video, storing everything. Returns the stored
// playlist record.
func (c *Collector) CollectPlaylist(ctx context.Context, playlistID string) (Playlist, error) {
	pl, err := c.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return Playlist{}, err
	}

	ids, err := c.fetchPlaylistItems(ctx, playlistID)
	if err != nil {
		return Playlist{}, err
	}
	pl.VideoIDs = ids

	slog.Info("collected playlist", "id", playlistID, "title", pl.Title, "videos", len(ids))

	for i := 0; i < len(ids); i += videoBatchSize {
		end := min(i+videoBatchSize, len(ids))
		videos, err := c.fetchVideos(ctx, ids[i:end])
		if err != nil {
			return Playlist{}, err
		}
		for _, v := range videos {
			if err := c.store.PutVideo(v); err != nil {
				return Playlist{}, err
			}
		}
	}

	if err := c.store.PutPlaylist(pl); err != nil {
		return Playlist{}, err
	}
	return pl, nil
}

// CollectVideo fetches and stores a single video's metadata.
func (c *Collector) CollectVideo(ctx context.Context, videoID string) (Video, error) {
	videos, err := c.fetchVideos(ctx, []string{videoID})
	if err != nil {
		return Video{}, err
	}
	if len(videos) == 0 {
		return Video{}, fmt.Errorf("%w: video %s", ErrNotFound, videoID)
	}
	if err := c.store.PutVideo(videos[0]); err != nil {
		return Video{}, err
	}
	return videos[0], nil
}

// API response shapes, trimmed to the fields we keep.

type apiSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelID    string    `json:"channelId"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
	ResourceID   struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type apiItem struct {
	ID             string     `json:"id"`
	Snippet        apiSnippet `json:"snippet"`
	ContentDetails struct {
		Duration  string `json:"duration"`
		ItemCount int    `json:"itemCount"`
	} `json:"contentDetails"`
}

type apiList struct {
	Items         []apiItem `json:"items"`
	NextPageToken string    `json:"nextPageToken"`
}

func (c *Collector) fetchPlaylist(ctx context.Context, id string) (Playlist, error) {
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("id", id)

	var res apiList
	if err := c.get(ctx, "/playlists", q, &res); err != nil {
		return Playlist{}, err
	}
	if len(res.Items) == 0 {
		return Playlist{}, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
	}

	it := res.Items[0]
	return Playlist{
		ID:           it.ID,
		Title:        it.Snippet.Title,
		Description:  it.Snippet.Description,
		ChannelTitle: it.Snippet.ChannelTitle,
		ItemCount:    it.ContentDetails.ItemCount,
		CollectedAt:  time.Now(),
	}, nil
}

func (c *Collector) fetchPlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("playlistId", playlistID)
		q.Set("maxResults", "50")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var res apiList
		if err := c.get(ctx, "/playlistItems", q, &res); err != nil {
			return nil, err
		}
		for _, it := range res.Items {
			if id := it.Snippet.ResourceID.VideoID; id != "" {
				ids = append(ids, id)
			}
		}

		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

func (c *Collector) fetchVideos(ctx context.Context, ids []string) ([]Video, error) {
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("id", strings.Join(ids, ","))

	var res apiList
	if err := c.get(ctx, "/videos", q, &res); err != nil {
		return nil, err
	}

	now := time.Now()
	videos := make([]Video, 0, len(res.Items))
	for _, it := range res.Items {
		videos = append(videos, Video{
			ID:           it.ID,
			Title:        it.Snippet.Title,
			Description:  it.Snippet.Description,
			ChannelID:    it.Snippet.ChannelID,
			ChannelTitle: it.Snippet.ChannelTitle,
			PublishedAt:  it.Snippet.PublishedAt,
			Duration:     it.ContentDetails.Duration,
			CollectedAt:  now,
		})
	}
	return videos, nil
}

func (c *Collector) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("knowledge: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("knowledge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := data
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("knowledge: GET %s: status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("knowledge: decode %s: %w", path, err)
	}
	return nil
}
