package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bit2swaz/rotate-backups/internal/config"
	"github.com/bit2swaz/rotate-backups/internal/report"
)

func init() {
	color.NoColor = true
}

// isolate keeps the user's and system configuration out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"CONFIG", "DRY_RUN", "OUTPUT", "CONCURRENCY", "DELETE_WORKERS"} {
		t.Setenv(config.EnvPrefix+"_"+name, "")
	}
	if _, err := os.Stat(config.SystemConfigFile); err == nil {
		t.Skipf("%s exists on this machine", config.SystemConfigFile)
	}
}

func backupDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	return dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.ExitCode()
}

func dailyBackups(days int) []string {
	names := make([]string, 0, days)
	for d := 1; d <= days; d++ {
		names = append(names, fmt.Sprintf("backup-2024-01-%02d.tar.gz", d))
	}
	return names
}

func TestRotateDeletesOutsideRetention(t *testing.T) {
	isolate(t)
	dir := backupDir(t, append(dailyBackups(5), "README")...)

	stdout, _, err := execute(t, "--daily", "3", dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"README",
		"backup-2024-01-03.tar.gz",
		"backup-2024-01-04.tar.gz",
		"backup-2024-01-05.tar.gz",
	}, listDir(t, dir))
	assert.Contains(t, stdout, "discard        backup-2024-01-01.tar.gz")
	assert.Contains(t, stdout, "keep           README (no timestamp found)")
}

func TestRotateDryRunLeavesFilesAlone(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(5)...)

	stdout, _, err := execute(t, "-n", "-d", "1", dir)
	require.NoError(t, err)

	assert.Equal(t, dailyBackups(5), listDir(t, dir))
	assert.Contains(t, stdout, "(dry run)")
	assert.Contains(t, stdout, "would discard  backup-2024-01-04.tar.gz")
}

func TestRotateJSONReport(t *testing.T) {
	isolate(t)
	dir := backupDir(t, append(dailyBackups(3), "x.tmp.20240101")...)

	stdout, _, err := execute(t, "-d", "1", "-x", "*.tmp", "-o", "json", dir)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &r))
	require.Len(t, r.Targets, 1)
	assert.False(t, r.Failed)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, 1, r.Targets[0].Kept)
	assert.Equal(t, 2, r.Targets[0].Discarded)
	require.Len(t, r.Targets[0].Excluded, 1)
	assert.Equal(t, "x.tmp.20240101", r.Targets[0].Excluded[0].Name)
	assert.Contains(t, listDir(t, dir), "x.tmp.20240101")
}

func TestRotateUsesConfigFile(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(4)...)
	cfgPath := filepath.Join(t.TempDir(), "rotate.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("[%s]\ndaily = 2\n", dir)), 0o644))

	_, _, err := execute(t, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-2024-01-03.tar.gz", "backup-2024-01-04.tar.gz"}, listDir(t, dir))
}

func TestRotateCommandLineOverridesConfigSection(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(4)...)
	cfgPath := filepath.Join(t.TempDir(), "rotate.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("[%s]\ndaily = 1\n", dir)), 0o644))

	_, _, err := execute(t, "-c", cfgPath, "-d", "3", dir)
	require.NoError(t, err)
	assert.Len(t, listDir(t, dir), 3)
}

func TestRotateDefaultUserConfig(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(3)...)
	home := os.Getenv("HOME")
	require.NoError(t, os.WriteFile(filepath.Join(home, config.UserConfigName), []byte(fmt.Sprintf("[%s]\ndaily = 1\ndry-run = yes\n", dir)), 0o644))

	stdout, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "would discard")
	assert.Len(t, listDir(t, dir), 3)
}

func TestRotateWithoutLocationsIsUsageError(t *testing.T) {
	isolate(t)

	_, stderr, err := execute(t)
	assert.Equal(t, exitUsage, exitCode(t, err))
	assert.Contains(t, stderr, "no locations given")
}

func TestRotateRejectsBadRetention(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(2)...)

	_, stderr, err := execute(t, "--weekly", "-1", dir)
	assert.Equal(t, exitUsage, exitCode(t, err))
	assert.Contains(t, stderr, "weekly")
	assert.Len(t, listDir(t, dir), 2)
}

func TestRotateRejectsUnknownOutput(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "-o", "xml", t.TempDir())
	assert.Equal(t, exitUsage, exitCode(t, err))
}

func TestRotateFailedLocationExitsNonZero(t *testing.T) {
	isolate(t)
	good := backupDir(t, dailyBackups(3)...)
	missing := filepath.Join(t.TempDir(), "missing")

	stdout, _, err := execute(t, "-d", "1", missing, good)
	assert.Equal(t, exitFailure, exitCode(t, err))
	assert.Len(t, listDir(t, good), 1, "healthy locations are still rotated")
	assert.Contains(t, stdout, "FAILED")
}

func TestRotateWritesMetricsFile(t *testing.T) {
	isolate(t)
	dir := backupDir(t, dailyBackups(3)...)
	metricsPath := filepath.Join(t.TempDir(), "rotate_backups.prom")

	_, _, err := execute(t, "-d", "1", "--metrics-file", metricsPath, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rb_deletions_total")
	assert.Contains(t, string(data), `result="success"`)
}

func TestBuildTargetsMergesOverrides(t *testing.T) {
	file, err := config.Parse("inline.ini", []byte("[/srv/db]\ndaily = 7\nweekly = 4\nexclude-list = *.partial\n\n[/srv/web]\nmonthly = 2\n"))
	require.NoError(t, err)

	cli := overrides{retention: map[string]string{"daily": "3"}, exclude: []string{"*.tmp"}, dryRun: true}

	targets := buildTargets(nil, file, cli)
	require.Len(t, targets, 2)
	assert.Equal(t, "/srv/db", targets[0].Location)
	assert.Equal(t, map[string]string{"daily": "3", "weekly": "4"}, targets[0].Retention)
	assert.Equal(t, []string{"*.partial", "*.tmp"}, targets[0].Exclude)
	assert.True(t, targets[0].DryRun)
	assert.Equal(t, map[string]string{"daily": "3", "monthly": "2"}, targets[1].Retention)

	targets = buildTargets([]string{"/srv/web/", "/srv/other"}, file, overrides{})
	require.Len(t, targets, 2)
	assert.Equal(t, map[string]string{"monthly": "2"}, targets[0].Retention)
	assert.Equal(t, "/srv/other", targets[1].Location)
	assert.Empty(t, targets[1].Retention)

	assert.Nil(t, buildTargets(nil, nil, overrides{}))
}
