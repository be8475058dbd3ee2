package voicevox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testEngine(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"0.22.0"`))
	})
	mux.HandleFunc("GET /speakers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name":"四国めたん","speaker_uuid":"7ffcb7ce","styles":[{"id":2,"name":"ノーマル"}]},
			{"name":"小夜/SAYO","speaker_uuid":"0693554c","styles":[{"id":46,"name":"ノーマル"}]}
		]`))
	})
	mux.HandleFunc("POST /audio_query", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "" {
			http.Error(w, "missing text", http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{"accent_phrases":[],"speedScale":1.0,"pitchScale":0.0,"volumeScale":1.0,"outputSamplingRate":24000}`))
	})
	mux.HandleFunc("POST /synthesis", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad content type", http.StatusUnsupportedMediaType)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFfakewav"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, 5*time.Second)
}

func TestClient_Version(t *testing.T) {
	_, c := testEngine(t)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.22.0", v)
}

func TestClient_Speakers(t *testing.T) {
	_, c := testEngine(t)

	speakers, err := c.Speakers(context.Background())
	require.NoError(t, err)
	require.Len(t, speakers, 2)
	assert.Equal(t, "小夜/SAYO", speakers[1].Name)
	assert.Equal(t, 46, speakers[1].Styles[0].ID)
}

func TestClient_AudioQuery(t *testing.T) {
	_, c := testEngine(t)

	query, err := c.AudioQuery(context.Background(), "こんにちは", 46)
	require.NoError(t, err)
	assert.True(t, gjson.ValidBytes(query))
	assert.Equal(t, 1.0, gjson.GetBytes(query, "speedScale").Float())
}

func TestClient_AudioQuery_EmptyText(t *testing.T) {
	_, c := testEngine(t)

	_, err := c.AudioQuery(context.Background(), "", 46)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_Synthesize(t *testing.T) {
	_, c := testEngine(t)

	wav, err := c.Synthesize(context.Background(), "テストです", 46, TweakOptions{SpeedScale: 1.2})
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfakewav"), wav)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Version(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestApplyTweaks(t *testing.T) {
	query := []byte(`{"speedScale":1.0,"pitchScale":0.0,"volumeScale":1.0}`)

	out, err := ApplyTweaks(query, TweakOptions{SpeedScale: 1.3, VolumeScale: 0.8})
	require.NoError(t, err)

	assert.Equal(t, 1.3, gjson.GetBytes(out, "speedScale").Float())
	assert.Equal(t, 0.8, gjson.GetBytes(out, "volumeScale").Float())
	// untouched zero-value tweak keeps the engine default
	assert.Equal(t, 0.0, gjson.GetBytes(out, "pitchScale").Float())
}

func TestApplyTweaks_NoChanges(t *testing.T) {
	query := []byte(`{"speedScale":1.0}`)

	out, err := ApplyTweaks(query, TweakOptions{})
	require.NoError(t, err)
	assert.Equal(t, query, out)
}

func TestClient_Synthesis_InvalidQuery(t *testing.T) {
	_, c := testEngine(t)

	_, err := c.Synthesis(context.Background(), []byte("not json"), 46)
	assert.Error(t, err)
}
