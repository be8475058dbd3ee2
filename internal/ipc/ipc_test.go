package ipc

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAndSend(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "setsuna.sock")

	var triggered atomic.Int32
	srv, err := Serve(sock, func(req Request) Response {
		switch req.Cmd {
		case CmdTrigger:
			triggered.Add(1)
			return Response{OK: true, State: "listening"}
		case CmdSay:
			return Response{OK: true, State: "thinking", Detail: req.Text}
		default:
			return Response{OK: false, State: "idle", Detail: "unknown command"}
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	resp, err := Send(sock, Request{Cmd: CmdTrigger})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "listening", resp.State)
	assert.Equal(t, int32(1), triggered.Load())

	resp, err = Send(sock, Request{Cmd: CmdSay, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Detail)

	resp, err = Send(sock, Request{Cmd: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
}

func TestServe_ReplacesStaleSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "setsuna.sock")

	srv, err := Serve(sock, func(Request) Response { return Response{OK: true} })
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	// first server left nothing behind that blocks a restart
	srv2, err := Serve(sock, func(Request) Response { return Response{OK: true} })
	require.NoError(t, err)
	defer srv2.Close()

	resp, err := Send(sock, Request{Cmd: CmdStatus})
	require.NoError(t, err)
	assert.True(t, resp.OK)
}

func TestSend_NoDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "nope.sock"), Request{Cmd: CmdStatus})
	assert.Error(t, err)
}
