package models

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates no invocation is in flight.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates at least one invocation is in flight.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusError indicates the most recent invocation failed.
	AgentStatusError AgentStatus = "error"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusBusy, AgentStatusError:
		return true
	default:
		return false
	}
}

// AgentKind identifies how an agent is backed.
type AgentKind string

const (
	// AgentKindCommand runs a shell command per method.
	AgentKindCommand AgentKind = "command"
	// AgentKindAnthropic sends a templated prompt to the Anthropic API per method.
	AgentKindAnthropic AgentKind = "anthropic"
	// AgentKindFunc is an in-process Go implementation registered in code.
	AgentKindFunc AgentKind = "func"
)

// AgentInfo is a point-in-time view of a registered agent.
type AgentInfo struct {
	// Name is the unique agent name that steps reference.
	Name string `json:"name"`
	// Kind is how the agent is backed.
	Kind AgentKind `json:"kind"`
	// Description is a human readable summary.
	Description string `json:"description,omitempty"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// Capabilities lists the method names the agent exposes, sorted.
	Capabilities []string `json:"capabilities"`
}
