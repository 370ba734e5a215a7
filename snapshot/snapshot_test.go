package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aicraft/core"
)

func sampleSnapshot() core.Snapshot {
	return core.Snapshot{
		ID:     "w1",
		Width:  10,
		Height: 8,
		Obstacles: map[core.Position]struct{}{
			{X: 3, Y: 2}: {},
			{X: 1, Y: 7}: {},
		},
		Items: map[core.Position]string{
			{X: 5, Y: 5}: "key",
		},
		Agent: core.Position{X: 4, Y: 4},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds", "w1.snap")
	snap := sampleSnapshot()

	require.NoError(t, Write(path, snap))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, snap.Width, got.Width)
	assert.Equal(t, snap.Height, got.Height)
	assert.Equal(t, snap.Obstacles, got.Obstacles)
	assert.Equal(t, snap.Items, got.Items)
	assert.Equal(t, snap.Agent, got.Agent)
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w1.snap")
	require.NoError(t, Write(path, sampleSnapshot()))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, Version, h.Version)
	assert.Equal(t, "w1", h.WorldID)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nothing.snap"))
	assert.Error(t, err)
}

func TestCaptureIsSorted(t *testing.T) {
	body := Capture(sampleSnapshot())
	require.Len(t, body.Obstacles, 2)
	assert.Equal(t, core.Position{X: 3, Y: 2}, body.Obstacles[0])
	assert.Equal(t, core.Position{X: 1, Y: 7}, body.Obstacles[1])
}
