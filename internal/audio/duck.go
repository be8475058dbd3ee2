package audio

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// Ducker lowers the volume of other PulseAudio playback streams while
// the assistant is listening, then restores them. Streams whose
// application.name matches selfNames are left alone.
type Ducker struct {
	mu          sync.Mutex
	active      bool
	selfNames   []string
	originalVol map[int]int // sink input id -> original volume %
	minVolume   int
}

type streamInfo struct {
	id      int
	volume  int
	appName string
}

// NewDucker creates a Ducker. minVolume is the floor (in %) other
// streams are ducked to.
func NewDucker(selfNames []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > 100 {
		minVolume = 100
	}
	return &Ducker{
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   minVolume,
	}
}

// Duck lowers every foreign stream to factor of its current volume, not
// below the floor. Idempotent while active.
func (d *Ducker) Duck(ctx context.Context, factor float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("audio: list streams: %w", err)
	}

	d.originalVol = make(map[int]int)
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		target := int(float64(s.volume) * factor)
		if target < d.minVolume {
			target = d.minVolume
		}
		if err := setStreamVolume(ctx, s.id, target); err != nil {
			continue // stream may have gone away
		}
		d.originalVol[s.id] = s.volume
	}

	d.active = true
	return nil
}

// Restore puts every ducked stream back to its original volume.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	for id, vol := range d.originalVol {
		_ = setStreamVolume(ctx, id, vol)
	}
	d.originalVol = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s streamInfo) bool {
	for _, name := range d.selfNames {
		if strings.EqualFold(s.appName, name) {
			return true
		}
	}
	return false
}

// listStreams parses `pactl list sink-inputs`.
func listStreams(ctx context.Context) ([]streamInfo, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, err
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(out string) []streamInfo {
	var (
		streams []streamInfo
		cur     *streamInfo
	)

	flush := func() {
		if cur != nil && cur.id >= 0 {
			streams = append(streams, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Sink Input #"):
			flush()
			id, err := strconv.Atoi(strings.TrimPrefix(trimmed, "Sink Input #"))
			if err != nil {
				continue
			}
			cur = &streamInfo{id: id}
		case cur != nil && strings.HasPrefix(trimmed, "Volume:"):
			if m := percentRe.FindStringSubmatch(trimmed); m != nil {
				cur.volume, _ = strconv.Atoi(m[1])
			}
		case cur != nil && strings.HasPrefix(trimmed, "application.name"):
			if _, v, ok := strings.Cut(trimmed, "="); ok {
				cur.appName = strings.Trim(strings.TrimSpace(v), `"`)
			}
		}
	}
	flush()
	return streams
}

func setStreamVolume(ctx context.Context, id, percent int) error {
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), strconv.Itoa(percent)+"%").Run()
}
