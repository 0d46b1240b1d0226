package types

import "testing"

func TestEventSubject(t *testing.T) {
	cases := map[string]*Event{
		"":            {Attributes: map[string]string{"initiator": "0x1"}},
		"theme:0x2/9": {Attributes: map[string]string{"creator": "0x2", "themeId": "9"}},
		"idea:0x1/4":  {Attributes: map[string]string{"initiator": "0x1", "ideaId": "4", "creator": "0x2", "themeId": "9"}},
	}
	for want, evt := range cases {
		if got := evt.Subject(); got != want {
			t.Fatalf("subject = %q, want %q", got, want)
		}
	}
	var nilEvent *Event
	if nilEvent.Subject() != "" {
		t.Fatalf("nil event has a subject")
	}
}

func TestEventCloneIsDeep(t *testing.T) {
	orig := &Event{Type: "x", Attributes: map[string]string{"k": "v"}}
	cp := orig.Clone()
	cp.Attributes["k"] = "changed"
	if orig.Attributes["k"] != "v" {
		t.Fatalf("clone shares attributes")
	}
}
