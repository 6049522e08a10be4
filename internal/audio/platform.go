package audio

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// systemPlayers are the players the system_command backend can drive, best first.
var systemPlayers = []string{"paplay", "aplay", "afplay", "ffplay"}

// Host is what the machine offers for playback
type Host struct {
	WSL     bool
	Players []string // installed system players, in systemPlayers order
}

// Player returns the preferred installed system player, or "" if there is none
func (h Host) Player() string {
	if len(h.Players) == 0 {
		return ""
	}
	return h.Players[0]
}

// AutoBackend is the backend "auto" resolves to on this host.
// malgo crackles under WSL, so a system player wins there when one is installed.
func (h Host) AutoBackend() string {
	if h.WSL && h.Player() != "" {
		return BackendSystemCommand
	}
	if h.WSL {
		slog.Warn("no system player found under WSL, falling back to malgo")
	}
	return BackendMalgo
}

// HostProbe gathers Host facts through swappable lookups
type HostProbe struct {
	ReadFile func(name string) ([]byte, error)
	Getenv   func(key string) string
	LookPath func(file string) (string, error)
}

// DefaultHostProbe looks at the real environment
func DefaultHostProbe() HostProbe {
	return HostProbe{ReadFile: os.ReadFile, Getenv: os.Getenv, LookPath: exec.LookPath}
}

// Probe inspects the host once
func (p HostProbe) Probe() Host {
	host := Host{WSL: p.isWSL()}
	for _, name := range systemPlayers {
		if _, err := p.LookPath(name); err == nil {
			host.Players = append(host.Players, name)
		}
	}

	slog.Debug("host probed", "wsl", host.WSL, "players", host.Players)
	return host
}

func (p HostProbe) isWSL() bool {
	if distro := p.Getenv("WSL_DISTRO_NAME"); distro != "" {
		slog.Debug("WSL detected from environment", "distro", distro)
		return true
	}

	version, err := p.ReadFile("/proc/version")
	if err != nil {
		slog.Debug("kernel version unavailable", "error", err)
		return false
	}
	lower := strings.ToLower(string(version))
	return strings.Contains(lower, "microsoft") || strings.Contains(lower, "wsl")
}
