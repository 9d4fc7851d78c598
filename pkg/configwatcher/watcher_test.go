package configwatcher

import (
	"context"
	"fmt"
	"olp_backend/internal/config"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const configTemplate = `
server:
  mode: test
storage:
  type: minio
quiz:
  final_question_count: %d
`

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(configTemplate, 10)), 0644))

	var seen atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, func(cfg *config.Config) {
			seen.Store(int64(cfg.Quiz.FinalQuestionCount))
		})
	}()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(configTemplate, 4)), 0644))

	require.Eventually(t, func() bool { return seen.Load() == 4 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchConfigIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(configTemplate, 10)), 0644))

	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchConfig(ctx, file, func(*config.Config) { calls.Add(1) })

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(configTemplate, 0)), 0644))

	time.Sleep(2 * time.Second)
	require.Zero(t, calls.Load())
}
