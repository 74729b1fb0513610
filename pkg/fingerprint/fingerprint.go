// Package fingerprint derives stable cache keys for scan requests.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"github.com/mirscan/mirscan/pkg/models"
)

// Fingerprint identifies a unique (model set, sequence, parameters) request.
type Fingerprint [sha256.Size]byte

// Hex returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) Hex() string { return hex.EncodeToString(f[:]) }

// Short returns a 12-char prefix for display.
func (f Fingerprint) Short() string { return f.Hex()[:12] }

// New computes the fingerprint for a scan request:
// H(H(model set) || H(params || sequence)). Model-set hashing covers each
// model's name and seed descriptor in collection order, never the weights,
// so logically identical collections loaded twice hash identically.
func New(set models.ModelSet, sequence string, p models.ScanParams) Fingerprint {
	setHash := hashModelSet(set)
	reqHash := hashRequest(sequence, p)

	h := sha256.New()
	h.Write(setHash[:])
	h.Write(reqHash[:])

	var fp Fingerprint
	h.Sum(fp[:0])
	return fp
}

func hashModelSet(set models.ModelSet) [sha256.Size]byte {
	h := sha256.New()
	for _, m := range set.Models {
		writeString(h, m.Name)
		writeString(h, m.Seed)
	}
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

func hashRequest(sequence string, p models.ScanParams) [sha256.Size]byte {
	h := sha256.New()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(p.Shadow))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(p.MinDistance))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.MaxLogAffinity))
	h.Write(buf[:])
	h.Write([]byte{boolByte(p.OnlyCanonical), boolByte(p.KeepMatchSeq), boolByte(p.Circular)})

	writeString(h, sequence)

	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// writeString length-prefixes the value so adjacent fields cannot alias.
func writeString(h hash.Hash, s string) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
