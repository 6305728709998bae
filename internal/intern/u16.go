package intern

import (
	"sync"

	"golang.org/x/text/encoding/unicode"
)

// U16Interner deduplicates UTF-16 code-unit sequences, used for
// source-literal optimisation (spec.md §4.B: "same contract over
// 16-bit code-unit sequences"). Transcoding from the UTF-8 source
// text uses golang.org/x/text's UTF-16 codec rather than a hand
// rolled surrogate-pair encoder (see SPEC_FULL.md domain stack table).
type U16Interner struct {
	mu      sync.RWMutex
	byValue map[string]uint32 // keyed by the UTF-16 sequence reinterpreted as a string of uint16 pairs
	byID    [][]uint16
}

// NewU16Interner creates an empty interner.
func NewU16Interner() *U16Interner {
	return &U16Interner{byValue: make(map[string]uint32, 64)}
}

func u16Key(units []uint16) string {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return string(b)
}

// Intern assigns (or reuses) a stable id for a UTF-16 code-unit slice.
func (u *U16Interner) Intern(units []uint16) uint32 {
	key := u16Key(units)
	u.mu.RLock()
	if id, ok := u.byValue[key]; ok {
		u.mu.RUnlock()
		return id
	}
	u.mu.RUnlock()

	u.mu.Lock()
	defer u.mu.Unlock()
	if id, ok := u.byValue[key]; ok {
		return id
	}
	id := uint32(len(u.byID))
	cp := make([]uint16, len(units))
	copy(cp, units)
	u.byID = append(u.byID, cp)
	u.byValue[key] = id
	return id
}

// InternUTF8 transcodes a UTF-8 source literal to UTF-16 and interns
// it, returning the stable id.
func (u *U16Interner) InternUTF8(s string) (uint32, error) {
	units, err := ToUTF16(s)
	if err != nil {
		return 0, err
	}
	return u.Intern(units), nil
}

// Resolve returns the UTF-16 sequence stored at id.
func (u *U16Interner) Resolve(id uint32) ([]uint16, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if int(id) >= len(u.byID) {
		return nil, false
	}
	return u.byID[id], true
}

// ToUTF16 transcodes a UTF-8 string to UTF-16 code units using
// golang.org/x/text/encoding/unicode, matching how ECMAScript source
// literals are measured (JS strings are UTF-16 sequences).
func ToUTF16(s string) ([]uint16, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := enc.String(s)
	if err != nil {
		return nil, err
	}
	units := make([]uint16, len(encoded)/2)
	for i := range units {
		units[i] = uint16(encoded[2*i]) | uint16(encoded[2*i+1])<<8
	}
	return units, nil
}

// FromUTF16 transcodes UTF-16 code units back to a UTF-8 Go string.
func FromUTF16(units []uint16) (string, error) {
	raw := make([]byte, len(units)*2)
	for i, u := range units {
		raw[2*i] = byte(u)
		raw[2*i+1] = byte(u >> 8)
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	return dec.String(string(raw))
}
