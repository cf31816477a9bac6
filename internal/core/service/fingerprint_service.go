// Package service holds the core use-case implementations: the
// Fingerprinter (C3) and the Request Handler orchestration (C6). Both are
// pure orchestration over the ports interfaces — no infrastructure detail
// leaks in here, matching the teacher's core/service layer.
package service

import (
	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

// canonicalItemRef and canonicalCustomization mirror domain.ItemRef and
// domain.Customization field-for-field but with explicit cbor field order
// via struct tags, so the wire form is stable independent of Go struct
// layout changes elsewhere in the domain package.
type canonicalItemRef struct {
	_    struct{} `cbor:",toarray"`
	ID   string
	Keys []string
	Vals []string
}

type canonicalCustomization struct {
	_           struct{} `cbor:",toarray"`
	Username    string
	Sex         string
	BodyVariant string
	SkinTone    int
	Slots       []canonicalItemRef
	Tattoos     []canonicalItemRef
	ChromaKey   uint8
}

var fingerprintEncMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

func toCanonicalItemRef(r domain.ItemRef) canonicalItemRef {
	c := canonicalItemRef{ID: r.ID}
	if len(r.Attrs) == 0 {
		return c
	}
	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sortStrings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = r.Attrs[k]
	}
	c.Keys = keys
	c.Vals = vals
	return c
}

// sortStrings is a tiny insertion sort: attribute bags are small (a handful
// of keys per slot) so avoiding a sort.Strings import for one call site
// isn't worth it either way; kept explicit because canonical-form code must
// never silently depend on map iteration order.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// canonicalize converts a Customization into its fixed-order wire form:
// slot keys in declaration order, missing slots as the zero-value sentinel,
// tattoos in their fixed sub-order.
func canonicalize(username string, c domain.Customization) canonicalCustomization {
	out := canonicalCustomization{
		Username:    username,
		Sex:         string(c.Sex),
		BodyVariant: string(c.BodyVariant),
		SkinTone:    c.SkinTone,
		ChromaKey:   uint8(c.ChromaKey),
	}

	out.Slots = make([]canonicalItemRef, len(c.Slots))
	for i, ref := range c.Slots {
		out.Slots[i] = toCanonicalItemRef(ref)
	}

	out.Tattoos = make([]canonicalItemRef, len(c.Tattoos.Slots))
	for i, ref := range c.Tattoos.Slots {
		out.Tattoos[i] = toCanonicalItemRef(ref)
	}

	return out
}

// FingerprintService implements ports.Fingerprinter (C3): a canonical CBOR
// encoding fed to a non-cryptographic 64-bit hash, folded into 32 bits.
type FingerprintService struct{}

// NewFingerprintService returns a stateless Fingerprinter.
func NewFingerprintService() *FingerprintService {
	return &FingerprintService{}
}

// Fingerprint derives the 32-bit content hash for (username, customization).
// Byte-identical canonical forms hash identically; any observable change to
// the input changes the canonical form and therefore, with overwhelming
// probability, the fingerprint.
func (FingerprintService) Fingerprint(username string, c domain.Customization) uint32 {
	form := canonicalize(username, c)

	buf, err := fingerprintEncMode.Marshal(form)
	if err != nil {
		// canonicalCustomization contains only maps-as-arrays, strings and
		// ints — Marshal cannot fail for this shape.
		panic(err)
	}

	sum := xxhash.Sum64(buf)
	return uint32(sum) ^ uint32(sum>>32)
}
