package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	calls   int32
	updated bool
	err     error
	url     atomic.Value
}

func (f *fakeUpdater) CheckForUpdates(_ context.Context, url string) (bool, error) {
	atomic.AddInt32(&f.calls, 1)
	f.url.Store(url)
	return f.updated, f.err
}

type fakeRecorder struct {
	updated, failed int32
}

func (f *fakeRecorder) RecordSync(updated bool, err error) {
	if err != nil {
		atomic.AddInt32(&f.failed, 1)
	} else if updated {
		atomic.AddInt32(&f.updated, 1)
	}
}

func TestRunNow(t *testing.T) {
	tests := []struct {
		name    string
		updater *fakeUpdater
	}{
		{"updated", &fakeUpdater{updated: true}},
		{"error", &fakeUpdater{err: errors.New("offline")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			s := New(context.Background(), tt.updater, "https://example.test/manifest.json", zerolog.Nop())
			s.Recorder = rec

			updated, err := s.RunNow()
			assert.Equal(t, tt.updater.updated, updated)
			assert.Equal(t, tt.updater.err, err)
			assert.Equal(t, "https://example.test/manifest.json", tt.updater.url.Load())
			assert.Equal(t, int32(1), rec.updated+rec.failed)
		})
	}
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := New(context.Background(), &fakeUpdater{}, "", zerolog.Nop())
	assert.Error(t, s.Register("0 6 * * *"))
}

func TestStartStop(t *testing.T) {
	u := &fakeUpdater{}
	s := New(context.Background(), u, "http://manifest", zerolog.Nop())
	require.NoError(t, s.Register("* * * * * *"))

	s.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&u.calls) > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	calls := atomic.LoadInt32(&u.calls)
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt32(&u.calls))
}
