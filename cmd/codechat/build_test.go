package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunBuildRendersMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.md")
	if err := os.WriteFile(path, []byte("*hi*"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := buildCmd
	if err := runBuild(cmd, []string{path}); err != nil {
		t.Fatalf("runBuild: %v", err)
	}
}

func TestRunBuildReportsMissingFile(t *testing.T) {
	if err := runBuild(buildCmd, []string{filepath.Join(t.TempDir(), "missing.md")}); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
