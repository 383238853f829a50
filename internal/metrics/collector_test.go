package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpExtract, 10*time.Millisecond)
	c.RecordTiming(OpExtract, 30*time.Millisecond)
	c.RecordTiming(OpExtract, 20*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Extract)
	assert.Equal(t, int64(3), snap.Extract.Count)
	assert.Equal(t, int64(60), snap.Extract.TotalTimeMs)
	assert.Equal(t, int64(10), snap.Extract.MinTimeMs)
	assert.Equal(t, int64(30), snap.Extract.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.Extract.AvgTimeMs, 0.01)
}

func TestSnapshotOmitsEmptyOps(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpSearch, time.Millisecond)

	snap := c.Snapshot()
	assert.NotNil(t, snap.Search)
	assert.Nil(t, snap.Scan)
	assert.Nil(t, snap.OCR)
	assert.Nil(t, snap.Embed)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestTrack(t *testing.T) {
	c := NewCollector()

	ran := false
	c.Track(OpClassify, func() { ran = true })

	assert.True(t, ran)
	snap := c.Snapshot()
	require.NotNil(t, snap.Classify)
	assert.Equal(t, int64(1), snap.Classify.Count)
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.RecordTiming(OpEmbed, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.Embed)
	assert.Equal(t, int64(1000), snap.Embed.Count)
}
