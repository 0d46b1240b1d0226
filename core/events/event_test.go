package events

import (
	"testing"

	"tastefun/core/types"
)

type sample struct{ name string }

func (s sample) EventType() string { return s.name }

type typedSample struct{}

func (typedSample) EventType() string { return "typed" }

func (typedSample) Event() *types.Event {
	return &types.Event{Type: "typed", Attributes: map[string]string{"k": "v"}}
}

type recorder struct{ seen []string }

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(sample{"a"})
	buf.Emit(sample{"b"})
	buf.Emit(nil)
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("buffered %d events", got)
	}
	rec := &recorder{}
	buf.Flush(rec)
	if len(rec.seen) != 2 || rec.seen[0] != "a" || rec.seen[1] != "b" {
		t.Fatalf("unexpected flush order %v", rec.seen)
	}
	if got := len(buf.Events()); got != 0 {
		t.Fatalf("buffer not drained: %d", got)
	}
}

func TestMultiAndToTypes(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, nil, b}.Emit(sample{"x"})
	if len(a.seen) != 1 || len(b.seen) != 1 {
		t.Fatalf("fan-out failed: %v %v", a.seen, b.seen)
	}
	if got := ToTypes(typedSample{}); got.Attributes["k"] != "v" {
		t.Fatalf("typed conversion lost attributes: %+v", got)
	}
	if got := ToTypes(sample{"plain"}); got.Type != "plain" || got.Attributes == nil {
		t.Fatalf("plain conversion = %+v", got)
	}
}
