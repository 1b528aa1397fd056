package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// DomainFingerprint prefixes every fingerprint input.
// The version suffix leaves room for a future algorithm change.
const DomainFingerprint = "lmdbkv/fingerprint/v1"

// Fingerprint computes the advisory content hash sent with every write.
//
// Format: hex(xxh3-128(domain + 0x00 + id + 0x00 + canonical(data)))
// The null separators keep domain, id and data boundaries unambiguous.
// The engine uses the value for idempotency and ordering; this package
// attaches no further meaning to it.
func Fingerprint(id string, data any) (string, error) {
	canonical, err := MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fingerprintCanonical(id, canonical), nil
}

func fingerprintCanonical(id string, canonical []byte) string {
	buf := make([]byte, 0, len(DomainFingerprint)+len(id)+len(canonical)+2)
	buf = append(buf, DomainFingerprint...)
	buf = append(buf, 0x00)
	buf = append(buf, id...)
	buf = append(buf, 0x00)
	buf = append(buf, canonical...)
	sum := xxh3.Hash128(buf).Bytes()
	return hex.EncodeToString(sum[:])
}
