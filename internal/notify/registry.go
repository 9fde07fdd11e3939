package notify

import (
	"sort"

	"github.com/gosuda/taskboard/internal/messenger"
)

// Target is a messenger together with the channel activity is posted to.
type Target struct {
	Messenger messenger.Messenger
	ChannelID string
}

// Registry is a simple map-based MessengerRegistry.
type Registry struct {
	targets map[string]Target
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]Target),
	}
}

// Register adds a messenger under its platform name, replacing any previous one.
func (r *Registry) Register(m messenger.Messenger, channelID string) {
	r.targets[m.Platform()] = Target{Messenger: m, ChannelID: channelID}
}

// Get returns the target for the given platform, or false if not registered.
func (r *Registry) Get(platform string) (Target, bool) {
	t, ok := r.targets[platform]
	return t, ok
}

// Targets returns every registered target ordered by platform.
func (r *Registry) Targets() []Target {
	platforms := make([]string, 0, len(r.targets))
	for p := range r.targets {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	out := make([]Target, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, r.targets[p])
	}
	return out
}
