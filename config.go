package codechat

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Default ports, fixed at build time per §3/§6.
const (
	DefaultRPCPort       = 9090
	DefaultHTTPPort      = 9091
	DefaultWebSocketPort = 9092
)

// ServiceConfig holds process-wide settings resolved once at startup (from
// CLI flags, environment auto-detection, and defaults) and injected into
// the RPC, HTTP, and WebSocket listeners. There is no implicit global
// configuration: every component that needs one of these values receives
// it explicitly.
type ServiceConfig struct {
	RPCPort       int
	HTTPPort      int
	WebSocketPort int

	// Insecure binds HTTP/WebSocket to 0.0.0.0 instead of loopback and
	// serves the /insecure warning page.
	Insecure bool

	// Coverage records whether coverage instrumentation was requested. No
	// code reads it; the `start` subcommand handles its own --coverage flag
	// directly.
	Coverage bool
}

// DefaultServiceConfig returns the standard configuration, with insecure
// mode auto-enabled when the environment indicates a forwarded-port
// development host (GitHub Codespaces or a CoCalc project).
func DefaultServiceConfig() ServiceConfig {
	cfg := ServiceConfig{
		RPCPort:       DefaultRPCPort,
		HTTPPort:      DefaultHTTPPort,
		WebSocketPort: DefaultWebSocketPort,
	}
	if _, forwarded := detectForwardedHost(); forwarded {
		cfg.Insecure = true
	}
	return cfg
}

// BindHost returns the address HTTP/WebSocket listeners should bind: a
// loopback address normally, or 0.0.0.0 in insecure mode.
func (c ServiceConfig) BindHost() string {
	if c.Insecure {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}

// ViewerHost returns the hostname browsers should use to reach the HTTP/
// WebSocket ports: a Codespaces forwarded-port hostname, a CoCalc project
// proxy path, or plain loopback.
func ViewerHost() string {
	if host, ok := detectForwardedHost(); ok {
		return host
	}
	return "127.0.0.1"
}

// detectForwardedHost implements the environment auto-detection of §6:
// CODESPACES=true composes a forwarded-port hostname from CODESPACE_NAME
// and GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN; otherwise a CoCalc project
// id parsed from `uname -n` alters the URL form. Both enable insecure
// (0.0.0.0) binding.
func detectForwardedHost() (host string, ok bool) {
	if os.Getenv("CODESPACES") == "true" {
		name := os.Getenv("CODESPACE_NAME")
		domain := os.Getenv("GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN")
		if name != "" && domain != "" {
			return fmt.Sprintf("%s-%%d.%s", name, domain), true
		}
	}
	if projectID, found := cocalcProjectID(); found {
		return fmt.Sprintf("cocalc.com/%s/server/%%d", projectID), true
	}
	return "", false
}

// ViewerURL builds the browser-facing URL for a client's viewer page,
// substituting the HTTP port into a forwarded-host pattern (Codespaces,
// CoCalc) when detected, or falling back to plain loopback.
func ViewerURL(cfg ServiceConfig, id ClientID) string {
	host := ViewerHost()
	if strings.Contains(host, "%d") {
		return fmt.Sprintf("https://%s/client?id=%d", fmt.Sprintf(host, cfg.HTTPPort), id)
	}
	return fmt.Sprintf("http://%s:%d/client?id=%d", host, cfg.HTTPPort, id)
}

// cocalcProjectID parses `uname -n` for a CoCalc project id, which CoCalc
// exposes as the machine's hostname.
func cocalcProjectID() (string, bool) {
	out, err := exec.Command("uname", "-n").Output()
	if err != nil {
		return "", false
	}
	hostname := strings.TrimSpace(string(out))
	if strings.HasPrefix(hostname, "project-") {
		return strings.TrimPrefix(hostname, "project-"), true
	}
	return "", false
}
