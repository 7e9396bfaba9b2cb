// Package access defines the capability-check contract the aggregators
// depend on. The identity/role system itself is an external collaborator;
// this package only answers opaque yes/no capability questions.
package access

import "context"

// Capabilities answers role-based permission checks for a reviewer id.
type Capabilities interface {
	CanScreen(ctx context.Context, reviewer string) bool
	CanScore(ctx context.Context, reviewer string) bool
	CanAssignScorers(ctx context.Context, reviewer string) bool
}

// StaticProvider implements Capabilities from fixed role lists, the way
// a deployment config hands them over. An empty list for a capability
// means "everyone", which keeps single-tenant setups frictionless.
type StaticProvider struct {
	screeners map[string]bool
	panelists map[string]bool
	admins    map[string]bool
}

// Option applies a configuration option to the StaticProvider.
type Option func(*StaticProvider)

// WithScreeners sets the reviewer ids allowed to screen.
func WithScreeners(ids []string) Option {
	return func(p *StaticProvider) {
		p.screeners = toSet(ids)
	}
}

// WithPanelists sets the reviewer ids allowed to score.
func WithPanelists(ids []string) Option {
	return func(p *StaticProvider) {
		p.panelists = toSet(ids)
	}
}

// WithAdmins sets the reviewer ids allowed to assign scorers and
// override statuses.
func WithAdmins(ids []string) Option {
	return func(p *StaticProvider) {
		p.admins = toSet(ids)
	}
}

// NewStaticProvider builds a provider from options.
func NewStaticProvider(opts ...Option) *StaticProvider {
	p := &StaticProvider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set
}

func allowed(set map[string]bool, reviewer string) bool {
	if reviewer == "" {
		return false
	}
	if set == nil {
		return true
	}
	return set[reviewer]
}

// CanScreen reports whether reviewer may record screening judgments.
func (p *StaticProvider) CanScreen(_ context.Context, reviewer string) bool {
	return allowed(p.screeners, reviewer)
}

// CanScore reports whether reviewer may record scoring judgments.
func (p *StaticProvider) CanScore(_ context.Context, reviewer string) bool {
	return allowed(p.panelists, reviewer)
}

// CanAssignScorers reports whether reviewer may perform operator actions.
func (p *StaticProvider) CanAssignScorers(_ context.Context, reviewer string) bool {
	return allowed(p.admins, reviewer)
}
