package calllog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLog_RollingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l := New(5)
	l.now = func() time.Time { return now }

	s := l.Status()
	require.Equal(t, 0, s.Used)
	require.Equal(t, 5, s.Limit)
	require.Zero(t, s.UsedPct)
	require.Nil(t, s.ResetAt)

	l.Record()
	now = now.Add(10 * time.Second)
	l.Record()
	l.Record()

	s = l.Status()
	require.Equal(t, 3, s.Used)
	require.InDelta(t, 60.0, s.UsedPct, 0.01)
	require.NotNil(t, s.ResetAt)
	// The oldest call was at T+0, so the window resets one minute later.
	require.True(t, s.ResetAt.Equal(time.Date(2024, 1, 15, 10, 1, 0, 0, time.UTC)))

	// 61 seconds after the first call, only the two later calls remain.
	now = now.Add(51 * time.Second)
	s = l.Status()
	require.Equal(t, 2, s.Used)
	require.True(t, s.ResetAt.Equal(time.Date(2024, 1, 15, 10, 1, 10, 0, time.UTC)))

	// Past the whole window: empty again.
	now = now.Add(2 * time.Minute)
	s = l.Status()
	require.Equal(t, 0, s.Used)
	require.Nil(t, s.ResetAt)
}

func TestLog_UnknownLimit(t *testing.T) {
	t.Parallel()

	l := New(0)
	l.Record()
	s := l.Status()
	require.Equal(t, 1, s.Used)
	require.Equal(t, 0, s.Limit)
	require.Zero(t, s.UsedPct, "no usage percentage without a known ceiling")
}

func TestLog_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	l := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 400, l.Status().Used)
}
