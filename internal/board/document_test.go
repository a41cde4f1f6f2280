package board

import (
	"path/filepath"
	"testing"
)

func TestDocument_FileRoundTrip(t *testing.T) {
	doc := Document{
		Cards: []CardRecord{
			{ID: "c1", Title: "witness", Pos: Vec{100, 100}, Size: Vec{150, 150}},
			{ID: "c2", Title: "alibi", Pos: Vec{500, 500}, Size: Vec{150, 150}},
		},
		Connections: []ConnectionRecord{
			{
				SourceID:      "c1",
				TargetID:      "c2",
				Color:         ColorRecord{R: 200, G: 40, B: 40, A: 255},
				ControlPoints: []Vec{{X: 300, Y: 250}, {X: 400, Y: 380}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "case.json")
	if err := SaveDocument(path, doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(got.Cards) != 2 || got.Cards[0] != doc.Cards[0] || got.Cards[1] != doc.Cards[1] {
		t.Fatalf("cards did not round-trip: %+v", got.Cards)
	}
	if len(got.Connections) != 1 {
		t.Fatalf("expected 1 connection record, got %d", len(got.Connections))
	}
	rec := got.Connections[0]
	if rec.SourceID != "c1" || rec.TargetID != "c2" || rec.Color != doc.Connections[0].Color {
		t.Fatalf("connection record did not round-trip: %+v", rec)
	}
	if len(rec.ControlPoints) != 2 || rec.ControlPoints[0] != (Vec{300, 250}) || rec.ControlPoints[1] != (Vec{400, 380}) {
		t.Fatalf("control points did not round-trip: %+v", rec.ControlPoints)
	}
}

func TestLoadDocument_MissingFile(t *testing.T) {
	if _, err := LoadDocument(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("loading a missing board file should error")
	}
}
