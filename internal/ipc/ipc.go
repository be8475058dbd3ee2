// Package ipc is the unix-socket control channel between setsuna-ctl
// and the daemon.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// Commands understood by the daemon.
const (
	CmdTrigger = "trigger" // run one voice-conversation turn
	CmdSay     = "say"     // chat with the given text, skipping the mic
	CmdCancel  = "cancel"  // stop an in-flight recording
	CmdStatus  = "status"  // report daemon state
)

// Request is one control message.
type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

// Response is the daemon's answer.
type Response struct {
	OK     bool   `json:"ok"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// Handler processes one request.
type Handler func(Request) Response

// Server accepts control connections on a unix socket.
type Server struct {
	ln   net.Listener
	path string
}

// Serve listens on socketPath (removing a stale socket first) and
// dispatches requests to handler from a background goroutine.
func Serve(socketPath string, handler Handler) (*Server, error) {
	os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", socketPath, err)
	}

	s := &Server{ln: ln, path: socketPath}
	go s.acceptLoop(handler)
	return s, nil
}

// Close stops accepting and removes the socket.
func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop(handler Handler) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return // listener closed
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	resp := handler(req)
	_ = json.NewEncoder(conn).Encode(resp)
}

// Send delivers one request to the daemon at socketPath and returns its
// response.
func Send(socketPath string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: dial %s: %w", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("ipc: send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("ipc: read response: %w", err)
	}
	return resp, nil
}
