package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/config"
)

func TestEventFilter_ShouldPublish(t *testing.T) {
	tests := []struct {
		name     string
		config   config.FilterConfig
		event    string
		variable string
		expected bool
	}{
		{
			name:     "no filters passes everything",
			config:   config.FilterConfig{},
			event:    "Newchannel",
			expected: true,
		},
		{
			name: "excluded event is rejected",
			config: config.FilterConfig{
				ExcludeEvents: []string{"Newexten", "VarSet"},
			},
			event:    "Newexten",
			expected: false,
		},
		{
			name: "non-excluded event passes",
			config: config.FilterConfig{
				ExcludeEvents: []string{"Newexten", "VarSet"},
			},
			event:    "Newchannel",
			expected: true,
		},
		{
			name: "exclusion is case sensitive",
			config: config.FilterConfig{
				ExcludeEvents: []string{"newexten"},
			},
			event:    "Newexten",
			expected: true,
		},
		{
			name:     "ChannelVarset with empty include list passes",
			config:   config.FilterConfig{},
			event:    "ChannelVarset",
			variable: "ANYTHING",
			expected: true,
		},
		{
			name: "ChannelVarset with matching variable passes",
			config: config.FilterConfig{
				IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID", "WAZO_TENANT"},
			},
			event:    "ChannelVarset",
			variable: "WAZO_TENANT",
			expected: true,
		},
		{
			name: "ChannelVarset with non-matching variable is rejected",
			config: config.FilterConfig{
				IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID"},
			},
			event:    "ChannelVarset",
			variable: "CHANNEL_STATE",
			expected: false,
		},
		{
			name: "ChannelVarset without a variable is rejected by a non-empty include list",
			config: config.FilterConfig{
				IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID"},
			},
			event:    "ChannelVarset",
			variable: "",
			expected: false,
		},
		{
			name: "exclusion beats the include list",
			config: config.FilterConfig{
				ExcludeEvents:              []string{"ChannelVarset"},
				IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID"},
			},
			event:    "ChannelVarset",
			variable: "WAZO_CALL_ID",
			expected: false,
		},
		{
			name: "include list does not affect other events",
			config: config.FilterConfig{
				IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID"},
			},
			event:    "Newchannel",
			variable: "",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewEventFilter(&tt.config)
			assert.Equal(t, tt.expected, filter.ShouldPublish(tt.event, tt.variable))
		})
	}
}

// The same filter must give the same answer every time; handlers may
// consult it more than once per event.
func TestEventFilter_Deterministic(t *testing.T) {
	filter := NewEventFilter(&config.FilterConfig{
		ExcludeEvents:              []string{"Newexten"},
		IncludeChannelVarsetEvents: []string{"WAZO_CALL_ID"},
	})

	for i := 0; i < 3; i++ {
		assert.False(t, filter.ShouldPublish("Newexten", ""))
		assert.True(t, filter.ShouldPublish("ChannelVarset", "WAZO_CALL_ID"))
		assert.False(t, filter.ShouldPublish("ChannelVarset", "OTHER"))
	}
}
