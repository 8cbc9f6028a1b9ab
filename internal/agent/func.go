package agent

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// HandlerFunc implements one method of a FuncAgent.
type HandlerFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// FuncAgent is an in-process agent built from plain functions.
type FuncAgent struct {
	name        string
	description string
	handlers    map[string]HandlerFunc
}

// NewFunc creates an in-process agent with one handler per method.
func NewFunc(name string, handlers map[string]HandlerFunc) *FuncAgent {
	return &FuncAgent{name: name, handlers: handlers}
}

// WithDescription sets the description shown in listings.
func (a *FuncAgent) WithDescription(d string) *FuncAgent {
	a.description = d
	return a
}

func (a *FuncAgent) Name() string           { return a.name }
func (a *FuncAgent) Description() string    { return a.description }
func (a *FuncAgent) Kind() models.AgentKind { return models.AgentKindFunc }

func (a *FuncAgent) Methods() []string {
	names := make([]string, 0, len(a.handlers))
	for name := range a.handlers {
		names = append(names, name)
	}
	return sortedMethods(names)
}

func (a *FuncAgent) Invoke(ctx context.Context, method string, input map[string]any) (map[string]any, error) {
	h, ok := a.handlers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", models.ErrMethodNotSupported, a.name, method)
	}
	return h(ctx, input)
}

var (
	_ Capability = (*FuncAgent)(nil)
	_ Describer  = (*FuncAgent)(nil)
)
