package bus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("never saw %d clients", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub, url := testHub(t)

	c, err := Dial(url)
	require.NoError(t, err)
	defer c.Close()

	waitForClients(t, hub, 1)

	hub.Broadcast(NewEvent(KindSetsuna, "こんにちは"))

	ev, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, KindSetsuna, ev.Kind)
	assert.Equal(t, "こんにちは", ev.Text)
	assert.False(t, ev.At.IsZero())
}

func TestHub_MultipleClients(t *testing.T) {
	hub, url := testHub(t)

	c1, err := Dial(url)
	require.NoError(t, err)
	defer c1.Close()

	c2, err := Dial(url)
	require.NoError(t, err)
	defer c2.Close()

	waitForClients(t, hub, 2)

	hub.Broadcast(NewEvent(KindState, "listening"))

	for _, c := range []*Client{c1, c2} {
		ev, err := c.Read()
		require.NoError(t, err)
		assert.Equal(t, "listening", ev.Text)
	}
}

func TestHub_DropsDisconnectedClient(t *testing.T) {
	hub, url := testHub(t)

	c, err := Dial(url)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, c.Close())

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never dropped")
		}
		hub.Broadcast(NewEvent(KindState, "idle"))
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_CloseDuringRead(t *testing.T) {
	_, url := testHub(t)

	c, err := Dial(url)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		for {
			if _, err := c.Read(); err != nil {
				done <- err
				return
			}
		}
	}()

	// let the goroutine block inside Read, then tear down underneath it
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClientClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Read never returned after Close")
	}

	// Close is idempotent
	assert.NoError(t, c.Close())
}

func TestDial_NoServer(t *testing.T) {
	_, err := Dial("ws://127.0.0.1:1/ws")
	assert.Error(t, err)
}
