// Package diag implements the connectivity and environment checks
// behind setsuna-diag.
package diag

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"setsuna/internal/voicevox"
)

// HostCandidate is one possible address for the Windows host as seen
// from inside WSL2.
type HostCandidate struct {
	Addr   string
	Source string // "resolv.conf" or "default-route"
}

// HostCandidates discovers likely Windows-host IPs from inside a WSL2
// guest: the resolv.conf nameserver and the default route gateway.
func HostCandidates() ([]HostCandidate, error) {
	var out []HostCandidate

	if ns, err := resolvConfNameservers("/etc/resolv.conf"); err == nil {
		for _, addr := range ns {
			out = append(out, HostCandidate{Addr: addr, Source: "resolv.conf"})
		}
	}

	if gw, err := defaultGateway("/proc/net/route"); err == nil && gw != "" {
		dup := false
		for _, c := range out {
			if c.Addr == gw {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, HostCandidate{Addr: gw, Source: "default-route"})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("diag: no host candidates found")
	}
	return out, nil
}

// resolvConfNameservers parses nameserver lines from a resolv.conf file.
func resolvConfNameservers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseResolvConf(f)
}

func parseResolvConf(r io.Reader) ([]string, error) {
	var out []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nameserver" {
			if net.ParseIP(fields[1]) != nil {
				out = append(out, fields[1])
			}
		}
	}
	return out, sc.Err()
}

// defaultGateway parses the default route gateway out of
// /proc/net/route (little-endian hex).
func defaultGateway(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return parseProcRoute(f)
}

func parseProcRoute(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		// Iface Destination Gateway ...
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		// little-endian
		return net.IPv4(raw[3], raw[2], raw[1], raw[0]).String(), nil
	}
	return "", sc.Err()
}

// Probe attempts a TCP connection to addr within timeout and reports
// the connect latency.
func Probe(addr string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return 0, err
	}
	conn.Close()
	return time.Since(start), nil
}

// VoicevoxReport is the result of a full engine round trip.
type VoicevoxReport struct {
	Version      string
	SpeakerCount int
	StyleCount   int
	QueryTime    time.Duration
	SynthTime    time.Duration
	WAVBytes     int
}

// CheckVoicevox exercises /version, /speakers and a full audio_query +
// synthesis round trip for phrase.
func CheckVoicevox(ctx context.Context, client *voicevox.Client, styleID int, phrase string) (VoicevoxReport, error) {
	var rep VoicevoxReport

	version, err := client.Version(ctx)
	if err != nil {
		return rep, fmt.Errorf("version: %w", err)
	}
	rep.Version = version

	speakers, err := client.Speakers(ctx)
	if err != nil {
		return rep, fmt.Errorf("speakers: %w", err)
	}
	rep.SpeakerCount = len(speakers)
	for _, s := range speakers {
		rep.StyleCount += len(s.Styles)
	}

	start := time.Now()
	query, err := client.AudioQuery(ctx, phrase, styleID)
	if err != nil {
		return rep, fmt.Errorf("audio_query: %w", err)
	}
	rep.QueryTime = time.Since(start)

	start = time.Now()
	wav, err := client.Synthesis(ctx, query, styleID)
	if err != nil {
		return rep, fmt.Errorf("synthesis: %w", err)
	}
	rep.SynthTime = time.Since(start)
	rep.WAVBytes = len(wav)

	return rep, nil
}
