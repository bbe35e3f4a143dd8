package engine

import (
	"encoding/binary"
	"math"
	"testing"
)

func encode(vec ...float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Registering twice must be harmless.
	if err := RegisterVectorFunctions(nil); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	var dist float64
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, encode(0, 0), encode(3, 4)).Scan(&dist); err != nil {
		t.Fatalf("vec_l2 query failed: %v", err)
	}
	if math.Abs(dist-5) > 1e-5 {
		t.Fatalf("vec_l2 = %v, want 5", dist)
	}

	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, encode(1, 2, 3), encode(1, 2, 3)).Scan(&dist); err != nil {
		t.Fatalf("vec_l2 identical query failed: %v", err)
	}
	if dist != 0 {
		t.Fatalf("vec_l2(identical) = %v, want 0", dist)
	}
}

func TestVecL2NullAndMismatch(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	var dist *float64
	if err := db.QueryRow(`SELECT vec_l2(NULL, ?)`, encode(1)).Scan(&dist); err != nil {
		t.Fatalf("vec_l2(NULL) query failed: %v", err)
	}
	if dist != nil {
		t.Fatalf("vec_l2(NULL) = %v, want NULL", *dist)
	}

	var d float64
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, encode(1, 0), encode(1)).Scan(&d); err == nil {
		t.Fatalf("expected dimension mismatch error, got distance %v", d)
	}
}

func TestRegisterVectorFunctions_Repeated(t *testing.T) {
	for i := 0; i < 3; i++ {
		if err := RegisterVectorFunctions(nil); err != nil {
			t.Fatalf("RegisterVectorFunctions call %d failed: %v", i, err)
		}
	}
	if registerErr != nil {
		t.Fatalf("registerErr = %v, want nil", registerErr)
	}
}
