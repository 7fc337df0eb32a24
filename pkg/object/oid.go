package object

import (
	"encoding/hex"
	"fmt"
)

// OIDSize is the byte length of an object identifier.
const OIDSize = 20

// OIDHexSize is the length of the lowercase hex text form of an OID.
const OIDHexSize = OIDSize * 2

// OID is a fixed 20-byte object identifier, displayed as 40 lowercase hex
// characters.
type OID [OIDSize]byte

// ZeroOID is the all-zero identifier used to mark "no object" in reflogs.
var ZeroOID OID

// ParseOID parses a 40-character hex string into an OID. Both upper and
// lower case digits are accepted; the canonical text form is lowercase.
func ParseOID(s string) (OID, error) {
	var id OID
	if len(s) != OIDHexSize {
		return id, fmt.Errorf("parse oid %q: want %d hex characters, have %d", s, OIDHexSize, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse oid %q: %w", s, err)
	}
	copy(id[:], raw)
	return id, nil
}

// String returns the 40-character lowercase hex form.
func (id OID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the OID is all zero bytes.
func (id OID) IsZero() bool {
	return id == ZeroOID
}
