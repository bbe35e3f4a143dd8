package vector

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTableDDL(t *testing.T) {
	ddl := TableDDL("song_embeddings", 128)
	for _, want := range []string{
		"CREATE TABLE song_embeddings (",
		"id        INTEGER PRIMARY KEY AUTOINCREMENT",
		"song_name TEXT NOT NULL",
		"length(embedding) = 512",
		"CONSTRAINT unique_embedding UNIQUE (embedding)",
	} {
		if !strings.Contains(ddl, want) {
			t.Fatalf("DDL missing %q:\n%s", want, ddl)
		}
	}
	if strings.Contains(ddl, "IF NOT EXISTS") {
		t.Fatalf("DDL must fail on an existing table:\n%s", ddl)
	}
}

// TestCreateSchema_Twice verifies that creating an existing schema fails with
// a SchemaError and leaves the table intact.
func TestCreateSchema_Twice(t *testing.T) {
	store := newTestStore(t, 4)
	ctx := context.Background()

	err := store.CreateSchema(ctx)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("second CreateSchema error = %v, want SchemaError", err)
	}
	if se.Op != "create" || se.Table != DefaultTable {
		t.Fatalf("SchemaError = %+v", se)
	}
	ok, err := store.SchemaExists(ctx)
	if err != nil || !ok {
		t.Fatalf("SchemaExists = %v, %v; want true, nil", ok, err)
	}
}

func TestDropSchema(t *testing.T) {
	store := newTestStore(t, 4)
	ctx := context.Background()

	if _, err := store.Insert(ctx, "1_c0", "Rock", []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}
	ok, err := store.SchemaExists(ctx)
	if err != nil || ok {
		t.Fatalf("SchemaExists after drop = %v, %v; want false, nil", ok, err)
	}

	err = store.DropSchema(ctx)
	var se *SchemaError
	if !errors.As(err, &se) || se.Op != "drop" {
		t.Fatalf("DropSchema on missing table error = %v, want SchemaError{Op: drop}", err)
	}

	// A dropped schema can be recreated empty.
	if err := store.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema after drop failed: %v", err)
	}
	if n, err := store.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count after recreate = %d, %v; want 0, nil", n, err)
	}
}

func TestValidateTable(t *testing.T) {
	for _, name := range []string{"song_embeddings", "_t1", "Songs"} {
		if err := validateTable(name); err != nil {
			t.Fatalf("validateTable(%q) failed: %v", name, err)
		}
	}
	for _, name := range []string{"", "1songs", "songs; DROP TABLE x", "main.songs"} {
		if err := validateTable(name); err == nil {
			t.Fatalf("validateTable(%q) should fail", name)
		}
	}
}
