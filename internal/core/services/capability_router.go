package services

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

// Capability names a user-facing operation.
type Capability string

const (
	CapChat             Capability = "chat"
	CapPromptEnhance    Capability = "prompt.enhance"
	CapPromptFromImage  Capability = "prompt.from_image"
	CapPromptRefineEdit Capability = "prompt.refine"
	CapImageGenerate    Capability = "image.generate"
	CapImageEdit        Capability = "image.edit"
)

// RouteTarget identifies which backend handles a capability.
type RouteTarget string

const (
	// TargetActive follows the user's provider selection.
	TargetActive RouteTarget = "active"
	// TargetCloud always uses the cloud provider.
	TargetCloud RouteTarget = "cloud"
)

// CapabilityRoute describes how a specific capability is served.
type CapabilityRoute struct {
	Target      RouteTarget `json:"target"`
	Description string      `json:"description"`
}

// CapabilityRouter decides which provider answers each capability. Text
// capabilities follow the selection; image capabilities stay on the cloud
// because the private server path has no image model. Routes are fixed at
// construction.
type CapabilityRouter struct {
	logger *slog.Logger
	routes map[Capability]CapabilityRoute
}

// NewCapabilityRouter creates a router with default capability mappings.
func NewCapabilityRouter(logger *slog.Logger) *CapabilityRouter {
	router := &CapabilityRouter{
		logger: logger,
		routes: map[Capability]CapabilityRoute{
			CapChat:             {Target: TargetActive, Description: "Streamed chat with the assistant persona"},
			CapPromptEnhance:    {Target: TargetActive, Description: "Turn form fields into one descriptor prompt"},
			CapPromptFromImage:  {Target: TargetCloud, Description: "Reverse an image into a prompt (multimodal)"},
			CapPromptRefineEdit: {Target: TargetCloud, Description: "Rewrite an edit request as an English instruction"},
			CapImageGenerate:    {Target: TargetCloud, Description: "Text-to-image generation"},
			CapImageEdit:        {Target: TargetCloud, Description: "Instruction-based image editing"},
		},
	}

	logger.Info("capability router initialized",
		"active_routes", router.countByTarget(TargetActive),
		"cloud_routes", router.countByTarget(TargetCloud),
	)
	return router
}

// Resolve returns the provider that serves capability under selection.
// Unknown capabilities go to the cloud.
func (r *CapabilityRouter) Resolve(capability Capability, selection domain.ProviderSelection) domain.ProviderSelection {
	route, ok := r.routes[normalize(capability)]

	if !ok {
		r.logger.Debug("unknown capability, defaulting to cloud", "capability", capability)
		return domain.ProviderCloud
	}
	if route.Target == TargetActive && selection.Valid() {
		return selection
	}
	return domain.ProviderCloud
}

// RouteInfo is one entry of ListRoutes.
type RouteInfo struct {
	Capability  Capability               `json:"capability"`
	Target      RouteTarget              `json:"target"`
	Provider    domain.ProviderSelection `json:"provider"`
	Description string                   `json:"description"`
}

// ListRoutes returns every route, sorted by name, resolved for selection.
func (r *CapabilityRouter) ListRoutes(selection domain.ProviderSelection) []RouteInfo {
	names := make([]Capability, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	out := make([]RouteInfo, 0, len(names))
	for _, name := range names {
		route := r.routes[name]
		out = append(out, RouteInfo{
			Capability:  name,
			Target:      route.Target,
			Provider:    r.Resolve(name, selection),
			Description: route.Description,
		})
	}
	return out
}

func (r *CapabilityRouter) countByTarget(target RouteTarget) int {
	count := 0
	for _, route := range r.routes {
		if route.Target == target {
			count++
		}
	}
	return count
}

func normalize(c Capability) Capability {
	return Capability(strings.TrimSpace(strings.ToLower(string(c))))
}
