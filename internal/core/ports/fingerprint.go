package ports

import "github.com/spritestack/avatar-render/internal/core/domain"

// Fingerprinter derives the 32-bit content hash that keys every cache tier
// (spec §4.1). Implementations must be deterministic across process
// restarts for the same canonical form.
type Fingerprinter interface {
	Fingerprint(username string, c domain.Customization) uint32
}
