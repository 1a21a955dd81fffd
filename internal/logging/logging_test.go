package logging

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSilent(t *testing.T) {
	l := Logger()
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		assert.False(t, l.Enabled(context.Background(), level), "level %v", level)
	}
	assert.NoError(t, nopHandler{}.Handle(context.Background(), slog.Record{}))
	assert.IsType(t, nopHandler{}, nopHandler{}.WithGroup("g"))
}

func TestSet(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { Set(orig) })

	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Debug("bake face", "face", "+x")
	assert.Contains(t, buf.String(), "face=+x")

	// Nil restores the silent logger
	Set(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { Set(orig) })

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				Set(nil)
			} else {
				Logger().Info("frame")
			}
		}()
	}
	wg.Wait()
}
