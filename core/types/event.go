package types

// Event is the flat, broadcastable form of an engine event. Journal rows and
// stream frames are built from it.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Subject names the entity the event is about, "idea:<initiator>/<id>" or
// "theme:<creator>/<id>", or "" for events without one.
func (e *Event) Subject() string {
	if e == nil {
		return ""
	}
	if initiator, id := e.Attributes["initiator"], e.Attributes["ideaId"]; initiator != "" && id != "" {
		return "idea:" + initiator + "/" + id
	}
	if creator, id := e.Attributes["creator"], e.Attributes["themeId"]; creator != "" && id != "" {
		return "theme:" + creator + "/" + id
	}
	return ""
}

// Clone returns a copy that shares no attribute storage with e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{Type: e.Type}
	if e.Attributes != nil {
		out.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}
