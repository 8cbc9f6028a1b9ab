// Package agent provides the agent registry and the built-in agent kinds.
//
// Every agent implements Capability: a name, the set of methods it exposes,
// and a uniform Invoke entry point taking and returning a key/value map.
// Agents come from two places: in-process constructors passed to
// Registry.Register, and manifests on disk loaded by Registry.LoadAgents.
package agent

import (
	"context"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Capability is the uniform invocation contract every agent implements.
type Capability interface {
	// Name is the unique agent name steps refer to.
	Name() string
	// Methods lists the method names the agent accepts.
	Methods() []string
	// Invoke runs one method. Implementations must honor ctx cancellation.
	Invoke(ctx context.Context, method string, input map[string]any) (map[string]any, error)
}

// Describer is implemented by agents that report a kind and description
// for listings. Agents without it are listed as func agents.
type Describer interface {
	Kind() models.AgentKind
	Description() string
}
