package debounce

import "testing"

func feed(d *Debouncer, samples ...bool) []Edge {
	out := make([]Edge, len(samples))
	for i, s := range samples {
		out[i] = d.Update(s)
	}
	return out
}

func TestRisingAfterSixStableSamples(t *testing.T) {
	d := New(Default)
	edges := feed(d, true, true, true, true, true, true, true)

	for i, e := range edges[:5] {
		if e != None {
			t.Fatalf("sample %d: edge = %s, want none", i, e)
		}
	}
	if edges[5] != Rising {
		t.Fatalf("sample 5: edge = %s, want rising", edges[5])
	}
	if edges[6] != None {
		t.Fatalf("sample 6: edge = %s, want none", edges[6])
	}
	if !d.Level() {
		t.Fatalf("Level() = false, want true")
	}
}

func TestGlitchProducesNoEdge(t *testing.T) {
	d := New(Default)
	for i, e := range feed(d, true, true, true, false, true, true, true, true, true) {
		if e != None {
			t.Fatalf("sample %d: edge = %s, want none", i, e)
		}
	}
	if got := d.Update(true); got != Rising {
		t.Fatalf("sixth stable sample: edge = %s, want rising", got)
	}
}

func TestFallingAfterRelease(t *testing.T) {
	d := New(Default)
	feed(d, true, true, true, true, true, true)

	edges := feed(d, false, false, false, false, false, false)
	if edges[5] != Falling {
		t.Fatalf("edges = %v, want falling last", edges)
	}
	if d.Level() {
		t.Fatalf("Level() = true, want false")
	}
}

func TestDepthClamped(t *testing.T) {
	d := New(1)
	if d.Update(true) != None || d.Update(true) != Rising {
		t.Fatalf("depth 1 should behave as depth 2")
	}
	if New(12).mask != 0xFF {
		t.Fatalf("depth 12 should clamp to 8")
	}
}
