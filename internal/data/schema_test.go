package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/zap"
)

const schemaYAML = `
- name: Flammable
  size: 1
  note: burns when adjacent to fire
- name: Inventory
  size: 64
- name: Door
  size: 2
`

func TestLoadComponentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.yaml")
	if err := os.WriteFile(path, []byte(schemaYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadComponentSchema(path)
	if err != nil {
		t.Fatalf("LoadComponentSchema: %v", err)
	}
	if s.Count() != 3 || s.Entries()[1].Size != 64 {
		t.Fatalf("entries = %+v", s.Entries())
	}
}

func TestParseComponentSchemaRejectsBadEntries(t *testing.T) {
	_, err := ParseComponentSchema([]byte(`
- name: ""
  size: 1
- name: Door
  size: -2
- name: door
  size: 2
`))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSchemaRegistersInOrder(t *testing.T) {
	s, err := ParseComponentSchema([]byte(schemaYAML))
	if err != nil {
		t.Fatal(err)
	}
	p := pool.New(pool.DefaultConfig(), zap.NewNop())
	w, err := ecs.NewWorld(ecs.WorldConfig{MaxEntities: 4, MaxComponents: 2}, p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ids, err := s.Register(w)
	if !errors.Is(err, ecs.ErrComponentTableFull) {
		t.Fatalf("err = %v", err)
	}
	if ids["Flammable"] != 0 || ids["Inventory"] != 1 {
		t.Fatalf("ids = %v", ids)
	}
	if _, ok := ids["Door"]; ok {
		t.Fatal("Door registered past capacity")
	}
	if w.Registry().ID("inventory") != 1 {
		t.Fatal("lookup by folded name failed")
	}
}
