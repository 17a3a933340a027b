package services

import (
	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// ProviderRegistry holds the two backends. The local backend is typed as a
// TextProvider only, so image calls cannot be routed to it.
type ProviderRegistry struct {
	cloud ports.CloudProvider
	local ports.TextProvider
}

// NewProviderRegistry creates a registry with injected providers
func NewProviderRegistry(cloud ports.CloudProvider, local ports.TextProvider) *ProviderRegistry {
	return &ProviderRegistry{cloud: cloud, local: local}
}

// Text returns the text backend for selection. Anything but local is cloud.
func (r *ProviderRegistry) Text(selection domain.ProviderSelection) ports.TextProvider {
	if selection == domain.ProviderLocal {
		return r.local
	}
	return r.cloud
}

// Images returns the image backend.
func (r *ProviderRegistry) Images() ports.ImageProvider {
	return r.cloud
}

// Cloud returns the cloud provider.
func (r *ProviderRegistry) Cloud() ports.CloudProvider {
	return r.cloud
}
