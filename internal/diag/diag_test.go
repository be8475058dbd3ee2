package diag

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setsuna/internal/voicevox"
)

func TestParseResolvConf(t *testing.T) {
	const conf = `# This file was automatically generated by WSL.
nameserver 172.28.64.1
nameserver fe80::1
search localdomain
options timeout:1
`

	ns, err := parseResolvConf(strings.NewReader(conf))
	require.NoError(t, err)
	assert.Equal(t, []string{"172.28.64.1", "fe80::1"}, ns)
}

func TestParseResolvConf_SkipsGarbage(t *testing.T) {
	const conf = `nameserver not-an-ip
nameserver
# nameserver 1.2.3.4
`

	ns, err := parseResolvConf(strings.NewReader(conf))
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestParseProcRoute(t *testing.T) {
	// gateway 0100541C is 28.84.0.1 little-endian
	const route = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask
eth0	00000000	0100541C	0003	0	0	0	00000000	0	0	0
eth0	0000541C	00000000	0001	0	0	0	0000FFFF	0	0	0
`

	gw, err := parseProcRoute(strings.NewReader(route))
	require.NoError(t, err)
	assert.Equal(t, "28.84.0.1", gw)
}

func TestParseProcRoute_NoDefault(t *testing.T) {
	const route = `Iface	Destination	Gateway
eth0	0000541C	00000000	0001	0	0	0	0000FFFF	0	0	0
`

	gw, err := parseProcRoute(strings.NewReader(route))
	require.NoError(t, err)
	assert.Empty(t, gw)
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	latency, err := Probe(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	assert.Greater(t, latency, time.Duration(0))
}

func TestProbe_Refused(t *testing.T) {
	_, err := Probe("127.0.0.1:1", 200*time.Millisecond)
	assert.Error(t, err)
}

func TestCheckVoicevox(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"0.22.0"`))
	})
	mux.HandleFunc("GET /speakers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"小夜/SAYO","speaker_uuid":"x","styles":[{"id":46,"name":"ノーマル"},{"id":47,"name":"ささやき"}]}]`))
	})
	mux.HandleFunc("POST /audio_query", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"speedScale":1.0}`))
	})
	mux.HandleFunc("POST /synthesis", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFFfakewav"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := voicevox.NewClient(srv.URL, 5*time.Second)
	rep, err := CheckVoicevox(context.Background(), client, 46, "テスト")
	require.NoError(t, err)

	assert.Equal(t, "0.22.0", rep.Version)
	assert.Equal(t, 1, rep.SpeakerCount)
	assert.Equal(t, 2, rep.StyleCount)
	assert.Equal(t, 11, rep.WAVBytes)
}

func TestCheckVoicevox_EngineDown(t *testing.T) {
	client := voicevox.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := CheckVoicevox(context.Background(), client, 46, "テスト")
	assert.Error(t, err)
}
