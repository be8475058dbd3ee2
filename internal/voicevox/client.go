// Package voicevox is a client for the VOICEVOX engine HTTP API.
package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrEmptyText is returned when synthesis is requested for an empty string.
var ErrEmptyText = errors.New("voicevox: empty text")

// Speaker is one entry of GET /speakers.
type Speaker struct {
	Name        string  `json:"name"`
	SpeakerUUID string  `json:"speaker_uuid"`
	Styles      []Style `json:"styles"`
}

// Style is a voice style of a speaker.
type Style struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TweakOptions adjust an audio query before synthesis. Zero values leave
// the engine defaults untouched.
type TweakOptions struct {
	SpeedScale      float64
	PitchScale      float64
	VolumeScale     float64
	IntonationScale float64
}

// Client talks to a VOICEVOX engine.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the engine at baseURL (e.g.
// "http://127.0.0.1:50021"). timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Version returns the engine version (GET /version).
func (c *Client) Version(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/version", nil, nil)
	if err != nil {
		return "", err
	}

	var v string
	if err := json.Unmarshal(body, &v); err != nil {
		// older engines answer with a bare string
		return string(bytes.Trim(body, `"`)), nil
	}
	return v, nil
}

// Speakers returns the installed speakers and their styles (GET /speakers).
func (c *Client) Speakers(ctx context.Context) ([]Speaker, error) {
	body, err := c.do(ctx, http.MethodGet, "/speakers", nil, nil)
	if err != nil {
		return nil, err
	}

	var speakers []Speaker
	if err := json.Unmarshal(body, &speakers); err != nil {
		return nil, fmt.Errorf("voicevox: decode speakers: %w", err)
	}
	return speakers, nil
}

// AudioQuery builds a synthesis query for text (POST /audio_query).
// The raw query JSON is returned untouched so callers can tweak fields.
func (c *Client) AudioQuery(ctx context.Context, text string, styleID int) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(styleID))

	return c.do(ctx, http.MethodPost, "/audio_query?"+q.Encode(), nil, nil)
}

// Synthesis renders a query to WAV bytes (POST /synthesis).
func (c *Client) Synthesis(ctx context.Context, query []byte, styleID int) ([]byte, error) {
	if !gjson.ValidBytes(query) {
		return nil, errors.New("voicevox: audio query is not valid JSON")
	}

	q := url.Values{}
	q.Set("speaker", strconv.Itoa(styleID))

	headers := map[string]string{"Content-Type": "application/json"}
	return c.do(ctx, http.MethodPost, "/synthesis?"+q.Encode(), query, headers)
}

// Synthesize runs audio_query, applies tweaks, and renders the result.
func (c *Client) Synthesize(ctx context.Context, text string, styleID int, opt TweakOptions) ([]byte, error) {
	query, err := c.AudioQuery(ctx, text, styleID)
	if err != nil {
		return nil, err
	}

	query, err = ApplyTweaks(query, opt)
	if err != nil {
		return nil, err
	}

	return c.Synthesis(ctx, query, styleID)
}

// ApplyTweaks overrides scale fields on a raw audio query.
func ApplyTweaks(query []byte, opt TweakOptions) ([]byte, error) {
	var err error
	set := func(key string, v float64) {
		if err != nil || v == 0 {
			return
		}
		query, err = sjson.SetBytes(query, key, v)
	}

	set("speedScale", opt.SpeedScale)
	set("pitchScale", opt.PitchScale)
	set("volumeScale", opt.VolumeScale)
	set("intonationScale", opt.IntonationScale)

	if err != nil {
		return nil, fmt.Errorf("voicevox: tweak query: %w", err)
	}
	return query, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicevox: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voicevox: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := data
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("voicevox: %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	return data, nil
}
