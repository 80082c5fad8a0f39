package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/ipc"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "worktrack.db", cfg.DatabasePath)
	assert.Equal(t, ipc.DefaultSocketPath, cfg.SocketPath)
	assert.Equal(t, "x11", cfg.Collector)
	assert.Equal(t, time.Second, cfg.SampleInterval())
	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 50*time.Second, cfg.InactivityThreshold())
	assert.Equal(t, " ", cfg.ResumeKey)
	assert.True(t, cfg.PayPartialOfficeBreak)
	assert.True(t, cfg.ArchiveEnabled)
	assert.Equal(t, 15*time.Minute, cfg.DefaultBreak())
	assert.Empty(t, cfg.Categories)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
database_path: /var/lib/worktrack/archive.db
collector: none
inactivity_threshold_seconds: 300
pay_partial_office_break: false
breaks:
  default_minutes: 30
categories:
  - pattern: figma
    category: Design
    score: 85
domains:
  - pattern: news.ycombinator.com
    category: Social Media
    score: 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/worktrack/archive.db", cfg.DatabasePath)
	assert.Equal(t, "none", cfg.Collector)
	assert.Equal(t, 5*time.Minute, cfg.InactivityThreshold())
	assert.False(t, cfg.PayPartialOfficeBreak)
	assert.Equal(t, 30*time.Minute, cfg.DefaultBreak())

	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "figma", cfg.Categories[0].Pattern)
	assert.Equal(t, "Design", cfg.Categories[0].Category)
	assert.Equal(t, 85, cfg.Categories[0].Score)
	require.Len(t, cfg.Domains, 1)
	assert.Equal(t, 10, cfg.Domains[0].Score)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "inactivity_threshold_seconds: 300\n")
	t.Setenv("WORKTRACK_INACTIVITY_THRESHOLD_SECONDS", "42")
	t.Setenv("WORKTRACK_BREAKS_DEFAULT_MINUTES", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, cfg.InactivityThreshold())
	assert.Equal(t, 5*time.Minute, cfg.DefaultBreak())
}

func TestSanitize(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
collector: wayland
sample_interval_seconds: 0
tick_interval_seconds: -3
breaks:
  default_minutes: 0
resume_key: ""
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "x11", cfg.Collector)
	assert.Equal(t, 1, cfg.SampleIntervalSeconds)
	assert.Equal(t, 1, cfg.TickIntervalSeconds)
	assert.Equal(t, 15, cfg.Breaks.DefaultMinutes)
	assert.Equal(t, " ", cfg.ResumeKey)
}

func TestMalformedFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "categories: [unclosed\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestWatchReloadsCategories(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "categories: []\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	cfg.Watch(func(next *Config) { changed <- next })

	// Give the watcher a moment to register before the write.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "categories:\n  - pattern: figma\n    category: Design\n    score: 85\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-changed:
			if len(next.Categories) == 1 {
				assert.Equal(t, "Design", next.Categories[0].Category)
				return
			}
		case <-deadline:
			t.Fatal("config change was not delivered")
		}
	}
}

func TestWatchWithoutFileIsNoop(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Watch(func(*Config) { t.Error("unexpected reload") })
}

// chdir switches the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
