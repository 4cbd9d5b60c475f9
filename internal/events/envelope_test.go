package events

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFromChannel(t *testing.T) {
	t.Run("type field becomes name, document becomes data", func(t *testing.T) {
		doc := map[string]any{
			"type":    "ChannelCreated",
			"channel": map[string]any{"id": "1579121400.1"},
		}

		env, ok := FromChannel(doc)
		if !ok {
			t.Fatal("FromChannel() dropped a well-formed event")
		}
		if env.Name != "ChannelCreated" {
			t.Errorf("Name = %v, want ChannelCreated", env.Name)
		}
		if !reflect.DeepEqual(env.Data, doc) {
			t.Errorf("Data = %v, want whole document", env.Data)
		}
		if env.Application != "" {
			t.Errorf("Application = %v, want empty", env.Application)
		}
	})

	t.Run("missing type drops the event", func(t *testing.T) {
		if _, ok := FromChannel(map[string]any{"channel": "x"}); ok {
			t.Error("FromChannel() should drop events without a type")
		}
	})

	t.Run("non-string type drops the event", func(t *testing.T) {
		if _, ok := FromChannel(map[string]any{"type": 42}); ok {
			t.Error("FromChannel() should drop events with a non-string type")
		}
	})
}

func TestFromManager(t *testing.T) {
	t.Run("fields parsed and name re-embedded", func(t *testing.T) {
		env, ok := FromManager("Newchannel", "Channel: SIP/100\r\nState: Down")
		if !ok {
			t.Fatal("FromManager() dropped a well-formed event")
		}
		if env.Name != "Newchannel" {
			t.Errorf("Name = %v, want Newchannel", env.Name)
		}
		expected := map[string]any{
			"Event":   "Newchannel",
			"Channel": "SIP/100",
			"State":   "Down",
		}
		if !reflect.DeepEqual(env.Data, expected) {
			t.Errorf("Data = %v, want %v", env.Data, expected)
		}
	})

	t.Run("empty name drops the event", func(t *testing.T) {
		if _, ok := FromManager("", "Channel: SIP/100"); ok {
			t.Error("FromManager() should drop unnamed events")
		}
	})

	t.Run("empty field block still publishes the name", func(t *testing.T) {
		env, ok := FromManager("Reload", "")
		if !ok {
			t.Fatal("FromManager() dropped an event with no fields")
		}
		if !reflect.DeepEqual(env.Data, map[string]any{"Event": "Reload"}) {
			t.Errorf("Data = %v, want only the Event key", env.Data)
		}
	})
}

func TestFromApplication(t *testing.T) {
	t.Run("application injected into data and envelope", func(t *testing.T) {
		doc := map[string]any{"type": "StasisStart"}

		env, ok := FromApplication("bar", doc)
		if !ok {
			t.Fatal("FromApplication() dropped a well-formed event")
		}
		if env.Name != "StasisStart" {
			t.Errorf("Name = %v, want StasisStart", env.Name)
		}
		if env.Application != "bar" {
			t.Errorf("Application = %v, want bar", env.Application)
		}
		if env.Data["application"] != "bar" {
			t.Errorf("Data[application] = %v, want bar", env.Data["application"])
		}
	})

	t.Run("missing type drops the event", func(t *testing.T) {
		if _, ok := FromApplication("bar", map[string]any{}); ok {
			t.Error("FromApplication() should drop events without a type")
		}
	})
}

func TestParseManagerFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   string
		expected map[string]any
	}{
		{
			name:     "crlf separated lines",
			fields:   "Channel: SIP/100\r\nState: Down",
			expected: map[string]any{"Channel": "SIP/100", "State": "Down"},
		},
		{
			name:     "bare newlines",
			fields:   "Channel: SIP/100\nState: Down",
			expected: map[string]any{"Channel": "SIP/100", "State": "Down"},
		},
		{
			name:     "value keeps embedded colons",
			fields:   "Variable: SIPURI=sip:100@example.com",
			expected: map[string]any{"Variable": "SIPURI=sip:100@example.com"},
		},
		{
			name:     "malformed line skipped, rest kept",
			fields:   "garbage without separator\r\nState: Down",
			expected: map[string]any{"State": "Down"},
		},
		{
			name:     "empty key skipped",
			fields:   ": orphan value\r\nState: Down",
			expected: map[string]any{"State": "Down"},
		},
		{
			name:     "empty value kept",
			fields:   "AccountCode:",
			expected: map[string]any{"AccountCode": ""},
		},
		{
			name:     "empty blob",
			fields:   "",
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ParseManagerFields(tt.fields)
			if !reflect.DeepEqual(doc, tt.expected) {
				t.Errorf("ParseManagerFields() = %v, want %v", doc, tt.expected)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	doc := map[string]any{
		"type":    "ChannelCreated",
		"channel": map[string]any{"id": "1579121400.1", "state": "Down"},
	}
	env, ok := FromChannel(doc)
	if !ok {
		t.Fatal("FromChannel() dropped the event")
	}

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if decoded["name"] != "ChannelCreated" {
		t.Errorf("name = %v, want ChannelCreated", decoded["name"])
	}
	data, _ := decoded["data"].(map[string]any)
	if data["type"] != "ChannelCreated" {
		t.Errorf("data.type = %v, want ChannelCreated", data["type"])
	}
	channel, _ := data["channel"].(map[string]any)
	if channel["id"] != "1579121400.1" {
		t.Errorf("data.channel.id = %v, want 1579121400.1", channel["id"])
	}
	if _, present := decoded["application"]; present {
		t.Error("application should be omitted for channel events")
	}
}

func TestHeaderSet(t *testing.T) {
	t.Run("channel event headers", func(t *testing.T) {
		h := HeaderSet("ChannelCreated", CategoryStasis, "")
		expected := map[string]string{"name": "ChannelCreated", "category": "stasis"}
		if !reflect.DeepEqual(h, expected) {
			t.Errorf("HeaderSet() = %v, want %v", h, expected)
		}
	})

	t.Run("application event headers", func(t *testing.T) {
		h := HeaderSet("StasisStart", CategoryStasis, "bar")
		if h["application_name"] != "bar" {
			t.Errorf("application_name = %v, want bar", h["application_name"])
		}
		if h["category"] != "stasis" {
			t.Errorf("category = %v, want stasis", h["category"])
		}
	})

	t.Run("ami category", func(t *testing.T) {
		h := HeaderSet("Newchannel", CategoryAMI, "")
		if h["category"] != "ami" {
			t.Errorf("category = %v, want ami", h["category"])
		}
	})
}
