package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	outputDir := t.TempDir()
	otherDir := t.TempDir()

	tests := []struct {
		name        string
		path        string
		allowedDirs []string
		errContains string
	}{
		{name: "run dir below output", path: filepath.Join(outputDir, "grid", "procedural"), allowedDirs: []string{outputDir}},
		{name: "output dir itself", path: outputDir, allowedDirs: []string{outputDir}},
		{name: "redundant separators", path: outputDir + "//grid", allowedDirs: []string{outputDir}},
		{name: "second allowed dir", path: filepath.Join(otherDir, "x"), allowedDirs: []string{outputDir, otherDir}},
		{name: "scene name escapes", path: filepath.Join(outputDir, "grid", "..", "..", "etc"), allowedDirs: []string{outputDir}, errContains: "outside allowed directories"},
		{name: "other dir", path: filepath.Join(otherDir, "grid"), allowedDirs: []string{outputDir}, errContains: "outside allowed directories"},
		{name: "null byte", path: filepath.Join(outputDir, "gr\x00id"), allowedDirs: []string{outputDir}, errContains: "null byte"},
		{name: "empty", path: "", allowedDirs: []string{outputDir}, errContains: "empty"},
		{name: "no allowed dirs", path: outputDir, errContains: "no allowed directories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.allowedDirs)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidatePath() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidatePath() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	outputDir := t.TempDir()
	outside := t.TempDir()
	inside := filepath.Join(outputDir, "real")
	if err := os.MkdirAll(inside, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(outputDir, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(inside, filepath.Join(outputDir, "link")); err != nil {
		t.Fatal(err)
	}

	if err := ValidatePath(filepath.Join(outputDir, "escape", "scene"), []string{outputDir}); err == nil {
		t.Error("symlink pointing outside should be rejected")
	}
	if err := ValidatePath(filepath.Join(outputDir, "link", "scene"), []string{outputDir}); err != nil {
		t.Errorf("symlink staying inside should be accepted, got %v", err)
	}
}

func TestPrepareRunDir(t *testing.T) {
	outputDir := t.TempDir()
	runDir := filepath.Join(outputDir, "grid", "procedural")

	if err := PrepareRunDir(outputDir, runDir, false); err != nil {
		t.Fatalf("missing run dir: %v", err)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := PrepareRunDir(outputDir, runDir, false); err != nil {
		t.Errorf("empty run dir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(runDir, "traj.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := PrepareRunDir(outputDir, runDir, false)
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("existing run error = %v, want ErrRunExists", err)
	}
	if strings.Contains(err.Error(), outputDir) {
		t.Errorf("error should not leak the full path: %v", err)
	}

	if err := PrepareRunDir(outputDir, runDir, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := os.Stat(runDir); !os.IsNotExist(err) {
		t.Error("overwrite should remove the old run")
	}

	if err := PrepareRunDir(outputDir, outputDir, true); err == nil {
		t.Error("output dir itself must not be used as a run dir")
	}
	if err := PrepareRunDir(outputDir, filepath.Join(outputDir, ".."), true); err == nil {
		t.Error("run dir outside output dir should be rejected")
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/generated/grid/procedural", ".../grid/procedural"},
		{"/file.txt", "file.txt"},
		{"dir/file.txt", ".../dir/file.txt"},
		{"file.txt", "file.txt"},
		{"/data/generated/", ".../data/generated"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.input); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
