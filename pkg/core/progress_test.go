package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProgress(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	p := newProgress(zap.New(obs), "Archiving", "Archived", time.Second, now)
	for i := 0; i < 10; i++ {
		clock = clock.Add(300 * time.Millisecond)
		p.Tick("")
	}
	p.Finalize()

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "Archiving... 4 files so far", entries[0].Message)
	assert.Equal(t, "Archiving... 8 files so far", entries[1].Message)
	assert.Equal(t, "Archived in 3.000s. Number of files: 10", entries[2].Message)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "1.234s", formatElapsed(1234*time.Millisecond))
	assert.Equal(t, "0.000s", formatElapsed(0))
}
