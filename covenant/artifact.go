// Package covenant packages compiled mil bytecode into content-addressed
// artifacts and stores them locally. Artifacts use canonical CBOR so the
// same bytecode always serializes to the same bytes.
package covenant

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("covenant: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Artifact is one compiled covenant. The hash is the covenant's identity:
// the chain addresses scripts by the hash of their bytecode, so it must be
// derived from the bytecode alone.
type Artifact struct {
	Hash     [32]byte  `cbor:"1,keyasint"`
	Bytecode []byte    `cbor:"2,keyasint"`
	Name     string    `cbor:"3,keyasint,omitempty"`
	Version  string    `cbor:"4,keyasint,omitempty"`
	Compiler string    `cbor:"5,keyasint,omitempty"` // compiler version string
	Built    time.Time `cbor:"6,keyasint,omitempty"`
}

// New builds an artifact for compiled bytecode, computing its content hash.
func New(name, version, compilerVersion string, bytecode []byte) *Artifact {
	return &Artifact{
		Hash:     sha256.Sum256(bytecode),
		Bytecode: bytecode,
		Name:     name,
		Version:  version,
		Compiler: compilerVersion,
		Built:    time.Now().UTC(),
	}
}

// HexHash returns the artifact's hash as lowercase hex.
func (a *Artifact) HexHash() string {
	return hex.EncodeToString(a.Hash[:])
}

// Verify recomputes the content hash and checks it against the stored one.
func (a *Artifact) Verify() error {
	if sha256.Sum256(a.Bytecode) != a.Hash {
		return fmt.Errorf("covenant: artifact %s does not match its bytecode", a.HexHash())
	}
	return nil
}

// Marshal serializes an artifact to canonical CBOR bytes.
func Marshal(a *Artifact) ([]byte, error) {
	return cborEncMode.Marshal(a)
}

// Unmarshal deserializes an artifact from CBOR bytes and verifies it.
func Unmarshal(data []byte) (*Artifact, error) {
	var a Artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("covenant: unmarshal artifact: %w", err)
	}
	if err := a.Verify(); err != nil {
		return nil, err
	}
	return &a, nil
}
