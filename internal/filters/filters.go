package filters

import (
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/config"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/events"
)

// EventFilter decides whether a normalized event may be published.
// Filters are pure: the decision depends only on the configuration the
// filter was built from and the arguments, so a filter built from one
// snapshot gives consistent answers for the whole event.
type EventFilter struct {
	config *config.FilterConfig
}

// NewEventFilter creates an event filter bound to one configuration
// snapshot
func NewEventFilter(cfg *config.FilterConfig) *EventFilter {
	return &EventFilter{config: cfg}
}

// ShouldPublish determines if an event passes all filters. For
// ChannelVarset events, variable carries the name of the channel
// variable being set; it is ignored for every other event name.
func (f *EventFilter) ShouldPublish(event, variable string) bool {
	// Exclusion is absolute and checked first
	if f.isExcluded(event) {
		return false
	}

	if event == events.ChannelVarset {
		return f.matchesVarsetFilter(variable)
	}

	return true
}

// isExcluded checks if the event name is on the exclusion list
func (f *EventFilter) isExcluded(event string) bool {
	for _, excluded := range f.config.ExcludeEvents {
		if event == excluded {
			return true
		}
	}
	return false
}

// matchesVarsetFilter checks a ChannelVarset variable against the
// include list
func (f *EventFilter) matchesVarsetFilter(variable string) bool {
	// Empty filter means include all
	if len(f.config.IncludeChannelVarsetEvents) == 0 {
		return true
	}

	// An event that names no variable cannot match a non-empty list
	if variable == "" {
		return false
	}

	for _, included := range f.config.IncludeChannelVarsetEvents {
		if variable == included {
			return true
		}
	}

	return false
}
