package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

func TestCapabilityRouterDefaults(t *testing.T) {
	router := NewCapabilityRouter(testLogger())

	// Text capabilities follow the selection
	assert.Equal(t, domain.ProviderLocal, router.Resolve(CapChat, domain.ProviderLocal))
	assert.Equal(t, domain.ProviderLocal, router.Resolve(CapPromptEnhance, domain.ProviderLocal))
	assert.Equal(t, domain.ProviderCloud, router.Resolve(CapChat, domain.ProviderCloud))

	// Unknown → cloud
	assert.Equal(t, domain.ProviderCloud, router.Resolve("something.unknown", domain.ProviderLocal))

	// Invalid selection → cloud
	assert.Equal(t, domain.ProviderCloud, router.Resolve(CapChat, "bogus"))
}

func TestCapabilityRouterImageOpsAlwaysCloud(t *testing.T) {
	router := NewCapabilityRouter(testLogger())

	for _, selection := range []domain.ProviderSelection{domain.ProviderCloud, domain.ProviderLocal} {
		for _, c := range []Capability{CapImageGenerate, CapImageEdit, CapPromptFromImage, CapPromptRefineEdit} {
			assert.Equal(t, domain.ProviderCloud, router.Resolve(c, selection), "%s with %s", c, selection)
		}
	}
}

func TestCapabilityRouterNormalizesNames(t *testing.T) {
	router := NewCapabilityRouter(testLogger())

	assert.Equal(t, domain.ProviderLocal, router.Resolve(" Chat ", domain.ProviderLocal))
	assert.Equal(t, domain.ProviderCloud, router.Resolve("Custom.Task", domain.ProviderLocal))
}

func TestCapabilityRouterListRoutes(t *testing.T) {
	router := NewCapabilityRouter(testLogger())

	routes := router.ListRoutes(domain.ProviderLocal)
	require.Len(t, routes, 6)
	assert.Equal(t, CapChat, routes[0].Capability)
	assert.Equal(t, domain.ProviderLocal, routes[0].Provider)

	for _, r := range routes {
		if r.Target == TargetCloud {
			assert.Equal(t, domain.ProviderCloud, r.Provider, r.Capability)
		}
	}
}
