package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Backend type names accepted by the factory and the config file
const (
	BackendAuto          = "auto"
	BackendSystemCommand = "system_command"
	BackendMalgo         = "malgo"
	BackendOto           = "oto"
)

// BackendFactory creates Playback instances based on configuration
type BackendFactory interface {
	CreateBackend(backendType string) (Playback, error)
	GetSupportedBackends() []string
	IsValidBackendType(backendType string) bool
}

// DefaultBackendFactory implements BackendFactory; the host is probed on first need
type DefaultBackendFactory struct {
	host func() Host
}

// Factory errors
var (
	ErrInvalidBackendType    = errors.New("invalid backend type")
	ErrBackendCreationFailed = errors.New("backend creation failed")
)

// NewBackendFactory creates a factory that probes the real host
func NewBackendFactory() *DefaultBackendFactory {
	return NewBackendFactoryWithDependencies(DefaultHostProbe().Probe)
}

// NewBackendFactoryWithDependencies creates a factory over an injected host probe
func NewBackendFactoryWithDependencies(probe func() Host) *DefaultBackendFactory {
	return &DefaultBackendFactory{host: sync.OnceValue(probe)}
}

// CreateBackend creates a Playback instance for backendType; "" means auto
func (f *DefaultBackendFactory) CreateBackend(backendType string) (Playback, error) {
	if backendType == "" {
		backendType = BackendAuto
	}

	slog.Debug("creating audio backend", "type", backendType)

	switch backendType {
	case BackendAuto:
		return f.createAutoBackend()
	case BackendSystemCommand:
		return f.createSystemCommandBackend()
	case BackendMalgo:
		return NewMalgoBackend(), nil
	case BackendOto:
		return NewOtoBackend(), nil
	default:
		slog.Error("invalid backend type requested", "type", backendType)
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackendType, backendType)
	}
}

// GetSupportedBackends returns a list of all supported backend types
func (f *DefaultBackendFactory) GetSupportedBackends() []string {
	return []string{BackendAuto, BackendSystemCommand, BackendMalgo, BackendOto}
}

// IsValidBackendType checks if a backend type is supported
func (f *DefaultBackendFactory) IsValidBackendType(backendType string) bool {
	return backendType == "" || slices.Contains(f.GetSupportedBackends(), backendType)
}

func (f *DefaultBackendFactory) createAutoBackend() (Playback, error) {
	optimalType := f.host().AutoBackend()
	slog.Debug("auto-detection result", "selected_type", optimalType)

	switch optimalType {
	case BackendSystemCommand:
		return f.createSystemCommandBackend()
	case BackendMalgo:
		return NewMalgoBackend(), nil
	default:
		slog.Error("auto-detection returned invalid backend type", "type", optimalType)
		return nil, fmt.Errorf("%w: auto-detection failed", ErrBackendCreationFailed)
	}
}

func (f *DefaultBackendFactory) createSystemCommandBackend() (Playback, error) {
	preferredCommand := f.host().Player()
	if preferredCommand == "" {
		slog.Error("no system audio commands available")
		return nil, fmt.Errorf("%w: no system audio commands found", ErrBackendNotAvailable)
	}

	slog.Debug("system command backend created", "command", preferredCommand)
	return NewSystemCommandBackend(preferredCommand), nil
}
