package covenant

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestNewArtifact(t *testing.T) {
	code := []byte{0xf1, 0x00, 0x05}
	a := New("escrow", "1.0.0", "0.1.0", code)

	want := sha256.Sum256(code)
	if a.Hash != want {
		t.Errorf("hash = %x, want %x", a.Hash, want)
	}
	if len(a.HexHash()) != 64 {
		t.Errorf("hex hash length = %d, want 64", len(a.HexHash()))
	}
	if err := a.Verify(); err != nil {
		t.Errorf("fresh artifact fails verification: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})
	a.Bytecode = []byte{0xff}
	if err := a.Verify(); err == nil {
		t.Error("tampered artifact passed verification")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	a := New("escrow", "1.0.0", "0.1.0", []byte{0xf1, 0x00, 0x05})

	data, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	b, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if b.Hash != a.Hash {
		t.Errorf("hash = %x, want %x", b.Hash, a.Hash)
	}
	if !bytes.Equal(b.Bytecode, a.Bytecode) {
		t.Errorf("bytecode = %x, want %x", b.Bytecode, a.Bytecode)
	}
	if b.Name != a.Name || b.Version != a.Version || b.Compiler != a.Compiler {
		t.Errorf("metadata = %q/%q/%q, want %q/%q/%q",
			b.Name, b.Version, b.Compiler, a.Name, a.Version, a.Compiler)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})
	x, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	y, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Error("canonical encoding produced different bytes for the same artifact")
	}
}

func TestUnmarshalRejectsBadHash(t *testing.T) {
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})
	a.Hash[0] ^= 1

	data, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("artifact with a forged hash was accepted")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("not cbor at all")); err == nil {
		t.Error("garbage input was accepted")
	}
}
