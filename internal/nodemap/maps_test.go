package nodemap_test

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"dualout/internal/display"
	"dualout/internal/nodemap"
)

func TestReduceDoesNotMutateInput(t *testing.T) {
	base := nodemap.Reduce(nodemap.State{}, nodemap.SetEntry("s1", "h1", "v1"))
	next := nodemap.Reduce(base, nodemap.SetEntry("s1", "h2", "v2"))

	if len(base["s1"]) != 1 {
		t.Fatalf("input state changed: %v", base)
	}
	if len(next["s1"]) != 2 {
		t.Fatalf("expected two entries, got %v", next)
	}
	removed := nodemap.Reduce(next, nodemap.RemoveEntry("s1", "h1"))
	if _, ok := next["s1"]["h1"]; !ok {
		t.Fatal("RemoveEntry mutated its input")
	}
	if _, ok := removed["s1"]["h1"]; ok {
		t.Fatal("RemoveEntry kept the entry")
	}
}

func TestSetEntryRejectsInvariantBreaks(t *testing.T) {
	m := nodemap.New()
	if err := m.SetEntry("s1", "h1", "v1"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if err := m.SetEntry("s1", "h1", "v1"); err != nil {
		t.Fatalf("re-setting a pair should be idempotent: %v", err)
	}

	cases := []struct {
		name string
		h, v string
	}{
		{"self", "x", "x"},
		{"value reused", "h2", "v1"},
		{"key as value", "h2", "h1"},
		{"value as key", "v1", "v9"},
		{"empty", "", "v2"},
	}
	for _, tc := range cases {
		if err := m.SetEntry("s1", tc.h, tc.v); !errors.Is(err, nodemap.ErrInvalidEntry) {
			t.Fatalf("%s: expected ErrInvalidEntry, got %v", tc.name, err)
		}
	}
	if m.Len("s1") != 1 {
		t.Fatalf("rejected entries leaked into the map: %v", m.Get("s1"))
	}
}

func TestQueries(t *testing.T) {
	m := nodemap.New()
	if m.HasMap("s1") {
		t.Fatal("new maps should be vanilla")
	}
	_ = m.SetEntry("s1", "h1", "v1")

	if got, ok := m.PartnerOf("h1", "s1"); !ok || got != "v1" {
		t.Fatalf("PartnerOf(h1) = %q,%v", got, ok)
	}
	if got, ok := m.PartnerOf("v1", "s1"); !ok || got != "h1" {
		t.Fatalf("PartnerOf(v1) = %q,%v", got, ok)
	}
	if _, ok := m.PartnerOf("h1", "s2"); ok {
		t.Fatal("partners must be scoped to a scene")
	}
	if m.DisplayOf("v1", "s1") != display.Vertical {
		t.Fatal("values are vertical")
	}
	if m.DisplayOf("h1", "s1") != display.Horizontal || m.DisplayOf("unknown", "s1") != display.Horizontal {
		t.Fatal("keys and unknown nodes are horizontal")
	}

	if m.RemoveEntry("s1", "v1") {
		t.Fatal("RemoveEntry must ignore ids that are not keys")
	}
	if !m.RemoveEntry("s1", "h1") {
		t.Fatal("RemoveEntry should remove keys")
	}
	if m.HasMap("s1") {
		t.Fatal("scene should be vanilla once its last entry is removed")
	}
	if _, ok := m.State()["s1"]; ok {
		t.Fatal("empty scene maps must not linger in state")
	}
}

func TestLoadSanitizes(t *testing.T) {
	m, dropped := nodemap.FromSnapshot(nodemap.Snapshot{
		"s1": {"a": "b", "c": "b", "d": "d", "e": "f"},
		"s2": {"x": "y", "y": "z"},
		"":   {"p": "q"},
	})
	if dropped != 4 {
		t.Fatalf("expected 4 dropped entries, got %d", dropped)
	}
	if got := m.Get("s1"); len(got) != 2 || got["a"] != "b" || got["e"] != "f" {
		t.Fatalf("unexpected s1 map %v", got)
	}
	if got := m.Get("s2"); len(got) != 1 || got["y"] != "z" {
		t.Fatalf("x -> y overlaps y -> z and should be dropped, got %v", got)
	}
	if err := m.Validate("s1"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if h, ok := m.HorizontalOf("s1", "f"); !ok || h != "e" {
		t.Fatalf("reverse index not rebuilt on load: %q,%v", h, ok)
	}
}

func TestValidateSceneReportsViolations(t *testing.T) {
	err := nodemap.ValidateScene(map[string]string{"a": "b", "c": "b", "b": "x"})
	if !errors.Is(err, nodemap.ErrInvalidEntry) {
		t.Fatalf("expected violations, got %v", err)
	}
}

func TestMapsStayBijective(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := nodemap.New()
		ids := rapid.SliceOfN(rapid.IntRange(0, 12), 1, 60).Draw(t, "ids")
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), len(ids), len(ids)).Draw(t, "ops")
		for i, op := range ops {
			h := fmt.Sprintf("n%d", ids[i])
			v := fmt.Sprintf("n%d", (ids[i]*7+3)%13)
			switch op {
			case 0, 1:
				_ = m.SetEntry("s", h, v)
			case 2:
				m.RemoveEntry("s", h)
			}
			entries := m.Get("s")
			if err := nodemap.ValidateScene(entries); err != nil {
				t.Fatalf("invariant broken after op %d: %v (%v)", i, err, entries)
			}
			if m.HasMap("s") != (len(entries) > 0) {
				t.Fatalf("HasMap disagrees with entries %v", entries)
			}
			for key, value := range entries {
				if back, ok := m.HorizontalOf("s", value); !ok || back != key {
					t.Fatalf("reverse index stale for %s -> %s", key, value)
				}
			}
		}
	})
}
