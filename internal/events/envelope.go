package events

// Event categories stamped into the broker header set. Channel events
// reuse the stasis category.
const (
	CategoryAMI    = "ami"
	CategoryStasis = "stasis"
)

// ChannelVarset is the high-volume variable-set event that the
// include_channelvarset_events filter narrows down.
const ChannelVarset = "ChannelVarset"

// Envelope is the canonical unit published to the bus. It is built fresh
// per raw event and consumed exactly once by the publisher.
type Envelope struct {
	Name        string         `json:"name"`
	Data        map[string]any `json:"data"`
	Application string         `json:"application,omitempty"`
}

// FromChannel builds an envelope from a channel topic document. The
// document's "type" field becomes the event name and the whole document
// becomes the payload. Returns false when no usable name is present.
func FromChannel(doc map[string]any) (*Envelope, bool) {
	name, _ := doc["type"].(string)
	if name == "" {
		return nil, false
	}
	return &Envelope{Name: name, Data: doc}, true
}

// FromManager builds an envelope from a manager event name and its flat
// field block. The parsed fields become the payload with an "Event" key
// carrying the name. An event without a name has no bus-representable
// form and is dropped.
func FromManager(name, fields string) (*Envelope, bool) {
	if name == "" {
		return nil, false
	}
	data := ParseManagerFields(fields)
	data["Event"] = name
	return &Envelope{Name: name, Data: data}, true
}

// FromApplication builds an envelope from a per-application event
// document. The owning application name is injected into the payload so
// consumers can attribute the event without parsing the routing key, and
// is also carried on the envelope itself.
func FromApplication(app string, doc map[string]any) (*Envelope, bool) {
	name, _ := doc["type"].(string)
	if name == "" {
		return nil, false
	}
	doc["application"] = app
	return &Envelope{Name: name, Data: doc, Application: app}, true
}

// Variable returns the variable name of a ChannelVarset document, or ""
// when the document does not carry one.
func Variable(doc map[string]any) string {
	v, _ := doc["variable"].(string)
	return v
}

// HeaderSet builds the flat broker headers for one event: always "name"
// and "category", plus "application_name" when app is non-empty.
func HeaderSet(name, category, app string) map[string]string {
	h := map[string]string{
		"name":     name,
		"category": category,
	}
	if app != "" {
		h["application_name"] = app
	}
	return h
}
