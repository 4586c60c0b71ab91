// Package browser opens the viewer URL in the user's real, visible browser
// for the editor RPC's get_client(location=browser) case (§6), using the
// go-rod launcher/browser pair to start a headful (visible) Chrome instance.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Open launches (or reuses, via the launcher's user-data-dir defaults) a
// visible Chrome/Chromium instance and navigates a new tab to url.
func Open(url string) error {
	controlURL, err := launcher.New().Headless(false).Launch()
	if err != nil {
		return fmt.Errorf("browser: launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}

	if _, err := browser.Page(proto.TargetCreateTarget{URL: url}); err != nil {
		return fmt.Errorf("browser: open %s: %w", url, err)
	}
	return nil
}
