package routes

import (
	"fmt"

	"github.com/graffiticode/graffiticode/engine/core"
)

// Version returns the current API version string used in routing (e.g., "v0").
func Version() string {
	return core.GetVersion()
}

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version())
}

func buildResourceRoute(resource string) string {
	return Base() + "/" + resource
}

func Tasks() string { return buildResourceRoute("tasks") }
func IDs() string   { return buildResourceRoute("ids") }

// HealthVersioned returns the versioned health path (e.g., "/api/v0/health").
func HealthVersioned() string {
	return Base() + "/health"
}
