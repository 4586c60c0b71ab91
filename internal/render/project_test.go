package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadProjectConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "codechat_config.yaml")
	writeFile(t, configPath, "outputPath: build\nargs: \"make html\"\n")

	cfg, err := LoadProjectConfig(configPath)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.HTMLExt != defaultHTMLExt {
		t.Fatalf("expected default htmlExt, got %q", cfg.HTMLExt)
	}
	if cfg.ProjectType != ProjectGeneral {
		t.Fatalf("expected default projectType general, got %q", cfg.ProjectType)
	}
	if cfg.SourcePath != dir {
		t.Fatalf("expected sourcePath to default to config dir %q, got %q", dir, cfg.SourcePath)
	}
	wantArgs := []string{"make", "html"}
	if len(cfg.Args) != len(wantArgs) || cfg.Args[0] != wantArgs[0] || cfg.Args[1] != wantArgs[1] {
		t.Fatalf("expected tokenized args %v, got %v", wantArgs, cfg.Args)
	}
}

func TestExpectedOutputPathGeneral(t *testing.T) {
	dir := t.TempDir()
	cfg := ProjectConfig{
		SourcePath: filepath.Join(dir, "src"),
		OutputPath: filepath.Join(dir, "out"),
		HTMLExt:    ".html",
	}
	got := expectedOutputPath(cfg, filepath.Join(dir, "src", "chapter1.rst"))
	want := filepath.Join(dir, "out", "chapter1.html")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpectedOutputPathPreTeXtMapping(t *testing.T) {
	dir := t.TempDir()
	cfg := ProjectConfig{
		SourcePath:  filepath.Join(dir, "src"),
		OutputPath:  filepath.Join(dir, "out"),
		HTMLExt:     ".html",
		ProjectType: ProjectPreTeXt,
	}
	srcFile := filepath.Join(dir, "src", "intro.ptx")
	writeFile(t, srcFile, "content")
	abs, _ := filepath.Abs(srcFile)
	writeFile(t, filepath.Join(cfg.OutputPath, "mapping.json"), `{"`+abs+`": ["sec-intro", "sec-intro-alt"]}`)

	got := expectedOutputPath(cfg, srcFile)
	want := filepath.Join(cfg.OutputPath, "sec-intro.html")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderProjectSkipsFreshOutput(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "codechat_config.yaml")
	writeFile(t, configPath, "outputPath: out\nargs: \"true\"\n")

	srcFile := filepath.Join(dir, "doc.rst")
	writeFile(t, srcFile, "content")

	outFile := filepath.Join(dir, "out", "doc.html")
	writeFile(t, outFile, "<p>cached</p>")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(outFile, future, future); err != nil {
		t.Fatal(err)
	}

	var built bool
	outcome := renderProject(configPath, srcFile, func(string) { built = true })
	if built {
		t.Fatal("expected the build command not to run when output is already newer")
	}
	if outcome.Err != "" {
		t.Fatalf("unexpected error: %s", outcome.Err)
	}
	if outcome.RenderedFilePath != outFile {
		t.Fatalf("got %q, want %q", outcome.RenderedFilePath, outFile)
	}
}

func TestRenderProjectRunsBuildWhenStale(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	dir := t.TempDir()
	configPath := filepath.Join(dir, "codechat_config.yaml")
	writeFile(t, configPath, "outputPath: out\nargs: \"touch out/doc.html\"\n")

	srcFile := filepath.Join(dir, "doc.rst")
	writeFile(t, srcFile, "content")
	if err := os.MkdirAll(filepath.Join(dir, "out"), 0o755); err != nil {
		t.Fatal(err)
	}

	outcome := renderProject(configPath, srcFile, nil)
	if outcome.Err != "" {
		t.Fatalf("unexpected error: %s", outcome.Err)
	}
	want := filepath.Join(dir, "out", "doc.html")
	if outcome.RenderedFilePath != want {
		t.Fatalf("got %q, want %q", outcome.RenderedFilePath, want)
	}
}
