package cli

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs(ToolMatch, []string{"-i", "s.json", "-m", "feat", "-v", "db.vt", "-o", "pairs.txt"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "s.json", cfg.Scene)
	assert.Equal(t, "db.vt", cfg.Database)
	assert.InDelta(t, 0.4, cfg.Threshold, 1e-12)
	assert.Equal(t, "min", cfg.Distance)
	assert.True(t, cfg.TFIDF)
	assert.True(t, cfg.Normalize)
	assert.Empty(t, cfg.Matrix)
}

func TestParseArgs_LearnDefaults(t *testing.T) {
	cfg, err := ParseArgs(ToolLearn, []string{"-i", "s.json", "-m", "feat", "-o", "tree.vt"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Depth)
	assert.Equal(t, 5000, cfg.Branching)
	assert.Equal(t, 1, cfg.Restarts)
	assert.Equal(t, "zstd", cfg.Compression)
}

func TestParseArgs_ConfigFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	yml := `
scene: from-file.json
feat_dir: feat
output: tree.vt
branching: 64
depth: 2
log_format: json
minio:
  access_key: ak
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := ParseArgs(ToolLearn, []string{"-config", path, "-b", "16"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "from-file.json", cfg.Scene)
	assert.Equal(t, 16, cfg.Branching)
	assert.Equal(t, 2, cfg.Depth)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "ak", cfg.Minio.AccessKey)
}

func TestParseArgs_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		tool Tool
		args []string
	}{
		{"missing scene", ToolLearn, []string{"-m", "feat", "-o", "t.vt"}},
		{"missing tree", ToolBuildDB, []string{"-i", "s", "-m", "feat", "-o", "db.vt"}},
		{"missing database", ToolMatch, []string{"-i", "s", "-m", "feat", "-o", "p.txt"}},
		{"unknown flag", ToolLearn, []string{"-x"}},
		{"flag of other tool", ToolLearn, []string{"-v", "db.vt"}},
		{"bad restarts", ToolLearn, []string{"-i", "s", "-m", "feat", "-o", "t.vt", "-r", "0"}},
		{"positional", ToolLearn, []string{"-i", "s", "-m", "feat", "-o", "t.vt", "extra"}},
		{"missing config", ToolLearn, []string{"-config", "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.tool, tt.args, &bytes.Buffer{})
			var ue *UsageError
			assert.True(t, errors.As(err, &ue), "got %v", err)
		})
	}
}

func TestParseArgs_UnknownYAMLKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brnaching: 3\n"), 0o644))

	_, err := ParseArgs(ToolLearn, []string{"-config", path}, &bytes.Buffer{})
	var ue *UsageError
	assert.ErrorAs(t, err, &ue)
}

func TestParseArgs_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := ParseArgs(ToolMatch, []string{"-h"}, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "-f")
}

func TestToolString(t *testing.T) {
	assert.Equal(t, "vocablearnbuilddb", ToolLearnBuildDB.String())
	assert.Equal(t, "Tool(9)", Tool(9).String())
}
