// Package serviceinterfaces defines the lifecycle contract for background
// components such as the auth event relay and the in-memory janitors.
package serviceinterfaces

import (
	"context"
	"errors"
	"fmt"
)

// Lifecycle defines the interface for services that need lifecycle management
type Lifecycle interface {
	// Startup is called when the service should initialize
	Startup(ctx context.Context) error

	// Shutdown is called when the service should cleanup
	Shutdown(ctx context.Context) error

	// IsReady returns whether the service is ready to handle requests
	IsReady() bool
}

type member struct {
	name      string
	component Lifecycle
	started   bool
}

// Group starts components in registration order and stops the started ones in
// reverse order.
type Group struct {
	members []*member
}

// Add registers a component under name
func (g *Group) Add(name string, component Lifecycle) {
	g.members = append(g.members, &member{name: name, component: component})
}

// Names lists registered components in order
func (g *Group) Names() []string {
	names := make([]string, 0, len(g.members))
	for _, m := range g.members {
		names = append(names, m.name)
	}
	return names
}

// Startup stops at the first failure. Components started before it stay
// started; call Shutdown to release them.
func (g *Group) Startup(ctx context.Context) error {
	for _, m := range g.members {
		if m.started {
			continue
		}
		if err := m.component.Startup(ctx); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
		m.started = true
	}
	return nil
}

// Shutdown stops every started component and joins their errors
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.members) - 1; i >= 0; i-- {
		m := g.members[i]
		if !m.started {
			continue
		}
		if err := m.component.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
		}
		m.started = false
	}
	return errors.Join(errs...)
}

// IsReady is true when every registered component is started and ready
func (g *Group) IsReady() bool {
	for _, m := range g.members {
		if !m.started || !m.component.IsReady() {
			return false
		}
	}
	return true
}
