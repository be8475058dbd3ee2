package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers every chat completion with a reply derived from the
// last user message and records how many messages each request carried.
func fakeAPI(t *testing.T, msgCounts *[]int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if msgCounts != nil {
			*msgCounts = append(*msgCounts, len(req.Messages))
		}

		last := req.Messages[len(req.Messages)-1].Content
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, "echo: "+last)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, maxTurns int, msgCounts *[]int) *Client {
	t.Helper()

	srv := fakeAPI(t, msgCounts)
	c, err := New(Config{
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
		Persona:  "You are Setsuna.",
		MaxTurns: maxTurns,
	}, option.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNew_NoKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClient_Reply(t *testing.T) {
	c := testClient(t, 10, nil)

	reply, err := c.Reply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)
	assert.Equal(t, 2, c.WindowLen())
}

func TestClient_Reply_EmptyText(t *testing.T) {
	c := testClient(t, 10, nil)

	_, err := c.Reply(context.Background(), "   ")
	assert.Error(t, err)
}

func TestClient_WindowTrimming(t *testing.T) {
	var counts []int
	c := testClient(t, 2, &counts)

	for i := 0; i < 5; i++ {
		_, err := c.Reply(context.Background(), fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	// window never exceeds maxTurns exchanges
	assert.Equal(t, 4, c.WindowLen())

	// request sizes: persona + window + new user message
	assert.Equal(t, []int{2, 4, 6, 6, 6}, counts)
}

func TestClient_Reset(t *testing.T) {
	c := testClient(t, 10, nil)

	_, err := c.Reply(context.Background(), "hello")
	require.NoError(t, err)
	c.Reset()
	assert.Equal(t, 0, c.WindowLen())
}

func TestClient_Summarize(t *testing.T) {
	c := testClient(t, 10, nil)

	summary, err := c.Summarize(context.Background(), "Song A", "a cover song")
	require.NoError(t, err)
	assert.Contains(t, summary, "Song A")

	// summaries stay out of the conversation window
	assert.Equal(t, 0, c.WindowLen())

	_, err = c.Summarize(context.Background(), "", "")
	assert.Error(t, err)
}
