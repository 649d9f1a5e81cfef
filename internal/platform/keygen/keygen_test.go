package keygen

import (
	"errors"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	a, err := Hash(String("claim_id", "CLM-100"), Int64("procedure_id", 7), Int64("claim_procedure_id", 1))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash(String("claim_id", "CLM-100"), Int64("procedure_id", 7), Int64("claim_procedure_id", 1))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Errorf("same components hashed to %s and %s", a, b)
	}
}

func TestHashDistinguishesComponents(t *testing.T) {
	a, _ := Hash(String("claim_id", "CLM-100"), Int64("procedure_id", 7))
	b, _ := Hash(String("claim_id", "CLM-100"), Int64("procedure_id", 8))
	if a == b {
		t.Error("different components must not collide")
	}
}

func TestHashNullEncoding(t *testing.T) {
	// (a, nil, b) must differ from (a, b): the null slot is part of the key.
	withNull, err := Hash(String("claim_id", "A"), OptInt64("claim_payment_id", nil), String("x", "B"))
	if err != nil {
		t.Fatalf("hash with null: %v", err)
	}
	without, err := Hash(String("claim_id", "A"), String("x", "B"))
	if err != nil {
		t.Fatalf("hash without null: %v", err)
	}
	if withNull == without {
		t.Error("null component must change the derived id")
	}

	v := int64(42)
	present, _ := Hash(String("claim_id", "A"), OptInt64("claim_payment_id", &v), String("x", "B"))
	if present == withNull {
		t.Error("present optional must differ from absent optional")
	}
}

func TestHashStringBoundaries(t *testing.T) {
	// Length prefixing keeps "ab"+"c" distinct from "a"+"bc".
	a, _ := Hash(String("x", "ab"), String("y", "c"))
	b, _ := Hash(String("x", "a"), String("y", "bc"))
	if a == b {
		t.Error("component boundaries must be unambiguous")
	}
}

func TestHashMissingComponent(t *testing.T) {
	_, err := Hash(String("claim_id", "  "), Int64("procedure_id", 1))
	if !errors.Is(err, ErrMissingKeyComponent) {
		t.Errorf("expected ErrMissingKeyComponent, got %v", err)
	}
	_, err = Hash()
	if !errors.Is(err, ErrMissingKeyComponent) {
		t.Errorf("expected ErrMissingKeyComponent for empty key, got %v", err)
	}
}

func TestHashShape(t *testing.T) {
	id, err := Hash(String("claim_id", "CLM-1"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if v := id.Version(); v != 4 {
		t.Errorf("version = %d, want 4", v)
	}
	if id[8]&0xc0 != 0x80 {
		t.Errorf("variant bits = %x, want RFC 4122", id[8]&0xc0)
	}
}
