package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/contract-reminder/internal/model"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  level: error
storage:
  driver: file
  file_path: %s
mail:
  provider: log
  default_from: noreply@example.com
`, filepath.Join(dir, "store.json"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunSeedReportAndSend(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCmd(t, "--config", cfg, "--seed")
	require.NoError(t, err)
	assert.Equal(t, "Seed complete: 3 vendor(s) and 6 service contract(s) created.\n", out)

	out, err = runCmd(t, "--config", cfg, "--dry-run")
	require.NoError(t, err)
	var payloads []model.ReminderPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payloads))
	assert.Len(t, payloads, 4)

	out, err = runCmd(t, "--config", cfg, "--report", "--window-days", "5")
	require.NoError(t, err)
	var report model.ReminderReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 5, report.WindowDays)
	assert.Equal(t, 1, report.TotalContracts)

	out, err = runCmd(t, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Sent 4 reminder(s)\n", out)

	out, err = runCmd(t, "--config", cfg, "--seed", "--flush")
	require.NoError(t, err)
	assert.Contains(t, out, "Existing vendor/service data deleted.")
}

func TestRunRejectsFlushWithoutSeed(t *testing.T) {
	_, err := runCmd(t, "--config", writeConfig(t), "--flush")
	assert.ErrorContains(t, err, "--flush requires --seed")
}

func TestRunRejectsInvalidWindow(t *testing.T) {
	for _, days := range []string{"0", "3651"} {
		_, err := runCmd(t, "--config", writeConfig(t), "--window-days", days, "--dry-run")
		assert.Error(t, err, days)
	}
}
