package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drfeedback/bundle"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func kitDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"wpalog.txt":        "wlan0: CTRL-EVENT-CONNECTED\n",
		"dmesg.txt":         "wlan0: associated\n",
		"logs/unknown.txt":  "hello\n",
		"kanux_version.txt": "2024-01-05\nKanux Beta v4.3.0\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestPackThenDiagnose(t *testing.T) {
	out := t.TempDir()
	archive := filepath.Join(out, "feedback.tar.gz")

	stdout, _, err := run(t, "pack", kitDir(t), archive)
	require.NoError(t, err)
	assert.Contains(t, stdout, "files=4")

	reportPath := filepath.Join(out, "report.txt")
	stdout, stderr, err := run(t, "diagnose", "--format", "text", "-o", reportPath, archive)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "wpalog.txt")
	assert.Contains(t, stderr, "total")

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, "[wpalog.txt] There is no indication of a successful WPA wireless association")
	assert.Contains(t, text, "[unknown.txt] artifact not recognized: unknown.txt")
	assert.Contains(t, text, "ARTIFACTS")
}

func TestDiagnoseStdinWithoutArtifacts(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, bundle.Write(&b, []bundle.Artifact{bundle.NewArtifact("dmesg.txt", []byte("boot\n"))}))

	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"diagnose", "--format", "markdown", "--full=false", "--quiet", "--log-level", "error", "-"})
	cmd.SetIn(&b)
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	md := stdout.String()
	assert.True(t, strings.HasPrefix(md, "# Doctor Feedback report"))
	assert.NotContains(t, md, "## Artifacts")
	assert.Contains(t, md, "This unit has not been wirelessly associated since it last booted")
}

func TestDiagnoseUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("\x1f\x8bnot really gzip"), 0o644))

	_, _, err := run(t, "diagnose", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, bundle.ErrArchiveUnreadable)
}

func TestDiagnoseRejectsBadConfig(t *testing.T) {
	_, _, err := run(t, "diagnose", "--format", "pdf", "x.tar.gz")
	assert.Error(t, err)

	t.Setenv("DRFEEDBACK_WORKERS", "0")
	_, _, err = run(t, "diagnose", "x.tar.gz")
	assert.Error(t, err)
}

func TestAnalyzers(t *testing.T) {
	stdout, _, err := run(t, "analyzers")
	require.NoError(t, err)
	for _, name := range []string{"wpalog.txt", "hdmi-info.txt", "screenshot.png", "packages.txt"} {
		assert.Contains(t, stdout, name)
	}
}

func TestAnalyzersWithRulesFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`
artifacts:
  syslog.txt:
    checks:
      - forbid: "Out of memory"
        message: "The kernel ran out of memory"
`), 0o644))

	cfg := filepath.Join(t.TempDir(), "drfeedback.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("rules_file: "+rules+"\n"), 0o644))

	stdout, _, err := run(t, "analyzers", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "syslog.txt")
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0.1.0-dev")
}
