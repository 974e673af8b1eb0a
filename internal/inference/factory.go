package inference

import (
	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/port"
)

// ProviderFactory creates an InferenceBackend from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.InferenceBackend, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewBackend creates an InferenceBackend from a provider config using the registered factory.
func NewBackend(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, errors.Newf("unknown inference provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewBackendChain builds one backend per configured provider and, when more
// than one is configured, wraps them in a FallbackBackend.
func NewBackendChain(cfgs []config.ProviderConfig, opts ...FallbackOption) (port.InferenceBackend, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no inference provider configured")
	}
	backends := make([]port.InferenceBackend, 0, len(cfgs))
	for i := range cfgs {
		b, err := NewBackend(&cfgs[i])
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s backend", cfgs[i].Provider)
		}
		backends = append(backends, b)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewFallbackBackend(backends, opts...), nil
}
