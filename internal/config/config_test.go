package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ECLASS_USERNAME", "student")
	t.Setenv("ECLASS_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, "courses:\n  - id: 101\n    name: Algorithms\n    download_folder: algo\n"))
	require.NoError(t, err)

	require.Equal(t, ":8000", cfg.Listen)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, LogLevelInfo, cfg.LogLevel)
	require.Equal(t, "https://eclass.aueb.gr", cfg.Eclass.BaseURL)
	require.Equal(t, Duration(time.Hour), cfg.Checker.Interval)
	require.Equal(t, "data", cfg.Checker.DataDir)

	require.Equal(t, "student", cfg.Eclass.Username)
	require.Equal(t, "secret", cfg.Eclass.Password)

	require.Len(t, cfg.Courses, 1)
	require.Equal(t, 101, cfg.Courses[0].ID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ECLASS_USERNAME", "")
	t.Setenv("ECLASS_PASSWORD", "")
	t.Setenv("REDIS_URL", "redis://redis:6379/1")

	cfg, err := Load(writeConfig(t, `
listen: ":9000"
log_level: debug
eclass:
  base_url: https://eclass.example.gr
  username: student
  password: secret
checker:
  interval: 30m
`))
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Listen)
	require.Equal(t, "redis://redis:6379/1", cfg.RedisURL)
	require.Equal(t, LogLevelDebug, cfg.LogLevel)
	require.Equal(t, Duration(30*time.Minute), cfg.Checker.Interval)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("ECLASS_USERNAME", "")
	t.Setenv("ECLASS_PASSWORD", "")

	testCases := []struct {
		name    string
		content string
	}{
		{name: "missing credentials", content: "listen: ':9000'\n"},
		{name: "bad log level", content: "log_level: loud\neclass:\n  username: a\n  password: b\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestCourseURL(t *testing.T) {
	cfg := EclassConfig{BaseURL: "https://eclass.example.gr"}

	require.Equal(t, "https://eclass.example.gr/modules/document/index.php?course=INF101", cfg.CourseURL(101))
	require.Equal(t, "https://eclass.example.gr/?login_page=1", cfg.LoginURL())
}
