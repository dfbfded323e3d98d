package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()

	for _, path := range []string{
		"../design.json",
		"../../etc/design.json",
		"/tmp/../etc/design.yaml",
		filepath.Join(exportsDir, "..", "design.json"),
	} {
		t.Run(path, func(t *testing.T) {
			err := ValidatePath(path, PathCheckWrite, cfg, exportsDir)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestValidatePath_Extension(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()

	for _, name := range []string{"design", "design.txt", "design.jsonl", "design.xml"} {
		err := ValidatePath(filepath.Join(exportsDir, name), PathCheckWrite, cfg, exportsDir)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "%s: got %v", name, err)
	}
	for _, name := range []string{"design.json", "design.yaml", "design.yml", "DESIGN.JSON"} {
		require.NoError(t, ValidatePath(filepath.Join(exportsDir, name), PathCheckWrite, cfg, exportsDir), name)
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()

	err := ValidatePath(filepath.Join(t.TempDir(), "design.json"), PathCheckWrite, cfg, exportsDir)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestValidatePath_NestedPathRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()
	sub := filepath.Join(exportsDir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "design.json"), []byte("{}"), 0600))

	err := ValidatePath(filepath.Join(sub, "design.json"), PathCheckRead, cfg, exportsDir)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	err = ValidatePath(filepath.Join(sub, "out.json"), PathCheckWrite, cfg, exportsDir)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/dir"}

	file := filepath.Join(allowed, "design.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: x"), 0600))
	require.NoError(t, ValidatePath(file, PathCheckRead, cfg, t.TempDir()))
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	file := filepath.Join(dir, "design.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))
	require.NoError(t, ValidatePath(file, PathCheckRead, cfg, t.TempDir()))
	require.NoError(t, ValidatePath(filepath.Join(dir, "out.json"), PathCheckWrite, cfg, t.TempDir()))

	err := ValidatePath(filepath.Join(dir, "missing.json"), PathCheckRead, cfg, t.TempDir())
	require.True(t, errors.Is(err, errors.ErrFileNotFound))
}

func TestValidatePath_FileNotFound_ReadMode(t *testing.T) {
	exportsDir := t.TempDir()
	err := ValidatePath(filepath.Join(exportsDir, "missing.json"), PathCheckRead, config.DefaultConfig(), exportsDir)
	require.True(t, errors.Is(err, errors.ErrFileNotFound))
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	exportsDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0600))

	link := filepath.Join(exportsDir, "link.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	cfg := config.DefaultConfig()
	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		err := ValidatePath(link, mode, cfg, exportsDir)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "mode %d: got %v", mode, err)
	}

	// allow_unsafe_paths lifts the directory rule, not the symlink rule.
	cfg.AllowUnsafePaths = true
	err := ValidatePath(link, PathCheckRead, cfg, exportsDir)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestValidatePath_SymlinkedAllowedDir(t *testing.T) {
	realDir := t.TempDir()
	link := filepath.Join(t.TempDir(), "exports-link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link}

	require.NoError(t, ValidatePath(filepath.Join(realDir, "design.json"), PathCheckWrite, cfg, t.TempDir()))
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.json", false},
		{"../file.json", true},
		{"/home/../etc/passwd", true},
		{"./file.json", false},
		{"/home/user/.hidden/file.json", false},
		{"file..name.json", false},
		{"/tmp/a/b/../c.yaml", true},
	}
	for _, tc := range tests {
		require.Equal(t, tc.contains, containsTraversal(tc.path), tc.path)
	}
}
