package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setsuna/internal/bus"
	"setsuna/internal/history"
)

func TestNew_BacklogMapping(t *testing.T) {
	backlog := []history.Entry{
		{Role: history.RoleUser, Content: "hi", Timestamp: time.Now().Unix()},
		{Role: history.RoleAssistant, Content: "hello", Timestamp: time.Now().Unix()},
	}

	m := New("/tmp/s.sock", nil, backlog)
	require.Len(t, m.lines, 2)
	assert.Equal(t, "you", m.lines[0].who)
	assert.Equal(t, "setsuna", m.lines[1].who)
}

func TestApplyEvent(t *testing.T) {
	m := New("/tmp/s.sock", nil, nil)

	m.applyEvent(bus.NewEvent(bus.KindState, "listening"))
	assert.Equal(t, "listening", m.state)
	assert.Empty(t, m.lines)

	m.applyEvent(bus.NewEvent(bus.KindYou, "question"))
	m.applyEvent(bus.NewEvent(bus.KindSetsuna, "answer"))
	m.applyEvent(bus.NewEvent(bus.KindError, "synthesis: boom"))

	require.Len(t, m.lines, 3)
	assert.Equal(t, "you", m.lines[0].who)
	assert.Equal(t, "setsuna", m.lines[1].who)
	assert.Equal(t, "error", m.lines[2].who)
}
