package registry

import "github.com/Mindburn-Labs/caprouter/pkg/tool"

// Service is the stable read interface the planner depends on. It exists
// independently of Loader so the planner never has to know whether a
// snapshot came from a file-backed Loader, a test double, or some future
// remote source.
type Service interface {
	// List returns the tools in the current snapshot. Stable for the
	// duration of a single call into the planner.
	List() []tool.Tool
	// GetRegistry returns the current snapshot, including its updatedAt.
	GetRegistry() Snapshot
}

// Ensure *Loader satisfies Service.
var _ Service = (*Loader)(nil)
