// Package bundler bundles the viewer's client-side JS entry point with
// esbuild's Go API (single in-process call, no child process) — the
// teacher's route-hydration bundler, repurposed from bundling one entry per
// route to bundling the one viewer/viewer.ts entry this domain needs.
package bundler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// BundleViewer bundles entryPath (viewer/viewer.ts) into outDir/viewer/bundle.js,
// matching the path the viewer page template's <script src> references.
func BundleViewer(entryPath, outDir string) error {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolving output dir: %w", err)
	}

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: []api.EntryPoint{
			{InputPath: entryPath, OutputPath: "viewer/bundle"},
		},
		Bundle:   true,
		Outdir:   absOut,
		Platform: api.PlatformBrowser,
		Write:    true,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, msg := range result.Errors {
			text := msg.Text
			if msg.Location != nil {
				text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
			}
			msgs = append(msgs, text)
		}
		return fmt.Errorf("esbuild errors:\n%s", strings.Join(msgs, "\n"))
	}

	return nil
}
