package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"codechat.dev/server/internal/manager"
	"codechat.dev/server/internal/subprocess"
)

// ProjectType selects project-specific output-path resolution (§3/§4.1).
type ProjectType string

const (
	ProjectGeneral ProjectType = "general"
	ProjectPreTeXt ProjectType = "pretext"
	ProjectDoxygen ProjectType = "doxygen"
)

// defaultHTMLExt is applied when a project config omits htmlExt (§3).
const defaultHTMLExt = ".html"

// ProjectConfig is the Go encoding of §3's project-configuration record,
// loaded on demand (never retained) from a codechat_config.yaml file.
type ProjectConfig struct {
	SourcePath  string      `mapstructure:"sourcePath"`
	OutputPath  string      `mapstructure:"outputPath"`
	Args        []string    `mapstructure:"-"`
	RawArgs     interface{} `mapstructure:"args"`
	HTMLExt     string      `mapstructure:"htmlExt"`
	ProjectType ProjectType `mapstructure:"projectType"`

	// configDir is the directory containing the config file; sourcePath and
	// outputPath resolve against it when relative.
	configDir string
}

// LoadProjectConfig parses and validates a codechat_config.yaml file,
// resolving args (string or sequence) into an argv slice via the same
// shell-like tokenizer the single-file external driver uses for string-form
// args, and defaulting sourcePath to the config file's own directory.
func LoadProjectConfig(configPath string) (ProjectConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetDefault("htmlExt", defaultHTMLExt)
	v.SetDefault("projectType", string(ProjectGeneral))

	if err := v.ReadInConfig(); err != nil {
		return ProjectConfig{}, fmt.Errorf("render: reading project config %s: %w", configPath, err)
	}

	var cfg ProjectConfig
	decoderCfg := &mapstructure.DecoderConfig{Result: &cfg, TagName: "mapstructure"}
	decoder, err := mapstructure.NewDecoder(decoderCfg)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("render: building config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return ProjectConfig{}, fmt.Errorf("render: decoding project config %s: %w", configPath, err)
	}

	cfg.configDir = filepath.Dir(configPath)
	if cfg.SourcePath == "" {
		cfg.SourcePath = cfg.configDir
	} else if !filepath.IsAbs(cfg.SourcePath) {
		cfg.SourcePath = filepath.Join(cfg.configDir, cfg.SourcePath)
	}
	if !filepath.IsAbs(cfg.OutputPath) {
		cfg.OutputPath = filepath.Join(cfg.configDir, cfg.OutputPath)
	}

	switch args := cfg.RawArgs.(type) {
	case string:
		tokens, err := subprocess.Tokenize(args)
		if err != nil {
			return ProjectConfig{}, fmt.Errorf("render: tokenising args: %w", err)
		}
		cfg.Args = tokens
	case []interface{}:
		for _, a := range args {
			cfg.Args = append(cfg.Args, fmt.Sprintf("%v", a))
		}
	case nil:
	default:
		return ProjectConfig{}, fmt.Errorf("render: unsupported args type %T", args)
	}

	return cfg, nil
}

// preTextMappingFile is the PreTeXt mapping file name, read from the
// project's outputPath directory (§6).
const preTextMappingFile = "mapping.json"

// expectedOutputPath computes outputPath / relativize(filePath, sourcePath)
// with htmlExt appended or substituted, preferring a PreTeXt mapping.json
// entry when the project is PreTeXt and one exists (§4.1).
func expectedOutputPath(cfg ProjectConfig, filePath string) string {
	htmlExt := cfg.HTMLExt
	if htmlExt == "" {
		htmlExt = defaultHTMLExt
	}

	if cfg.ProjectType == ProjectPreTeXt {
		if xmlIDs, ok := lookupPreTeXtMapping(cfg, filePath); ok && len(xmlIDs) > 0 {
			return filepath.Join(cfg.OutputPath, xmlIDs[0]+htmlExt)
		}
	}

	rel, err := filepath.Rel(cfg.SourcePath, filePath)
	if err != nil {
		rel = filepath.Base(filePath)
	}
	ext := filepath.Ext(rel)
	if ext != "" {
		rel = strings.TrimSuffix(rel, ext) + htmlExt
	} else {
		rel += htmlExt
	}
	return filepath.Join(cfg.OutputPath, rel)
}

// lookupPreTeXtMapping reads <outputPath>/mapping.json and returns the
// XML-id list for filePath's canonicalized (absolute) path, if present.
func lookupPreTeXtMapping(cfg ProjectConfig, filePath string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(cfg.OutputPath, preTextMappingFile))
	if err != nil {
		return nil, false
	}
	var mapping map[string][]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, false
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	ids, ok := mapping[abs]
	return ids, ok
}

// substituteArgPlaceholders replaces {project_path}, {source_path}, and
// {output_path} in each arg (§3).
func substituteArgPlaceholders(args []string, cfg ProjectConfig) []string {
	replacer := strings.NewReplacer(
		"{project_path}", cfg.configDir,
		"{source_path}", cfg.SourcePath,
		"{output_path}", cfg.OutputPath,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = replacer.Replace(a)
	}
	return out
}

// renderProject implements §4.1's project driver: read and validate the
// config, compute the expected HTML path, skip the build if it's already
// newer than the source, otherwise run the project's build command and
// recheck. Diagnostic failures are reported in the error string but the
// best-guess output path is still returned.
func renderProject(configPath, filePath string, onBuild func(string)) manager.RenderOutcome {
	cfg, err := LoadProjectConfig(configPath)
	if err != nil {
		return manager.RenderOutcome{
			WasPerformed:   true,
			ProjectPath:    configPath,
			HasProjectPath: true,
			Err:            err.Error(),
		}
	}

	outputPath := expectedOutputPath(cfg, filePath)

	if isNewerThan(outputPath, filePath) {
		return manager.RenderOutcome{
			WasPerformed:     true,
			ProjectPath:      configPath,
			HasProjectPath:   true,
			RenderedFilePath: outputPath,
		}
	}

	argv := substituteArgPlaceholders(cfg.Args, cfg)
	var command string
	var tail []string
	if len(argv) > 0 {
		command, tail = argv[0], argv[1:]
	}

	var errText string
	if command == "" {
		errText = "render: project config has no args to run"
	} else {
		res := subprocess.Run(context.Background(), cfg.configDir, command, tail, onBuild)
		if res.ExitErr != nil {
			errText = fmt.Sprintf("%v\n%s", res.ExitErr, res.Stderr)
		} else if res.Stderr != "" {
			errText = res.Stderr
		}
		if !isNewerThan(outputPath, filePath) {
			if errText != "" {
				errText += "\n"
			}
			errText += fmt.Sprintf("render: build did not produce an up-to-date %s", outputPath)
		}
	}

	return manager.RenderOutcome{
		WasPerformed:     true,
		ProjectPath:      configPath,
		HasProjectPath:   true,
		RenderedFilePath: outputPath,
		Err:              errText,
	}
}

// isNewerThan reports whether outputPath exists and has a later
// modification time than sourcePath (§4.1's mtime comparison).
func isNewerThan(outputPath, sourcePath string) bool {
	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return outInfo.ModTime().After(srcInfo.ModTime())
}
