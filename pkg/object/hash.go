package object

import (
	"crypto/sha1"
	"fmt"
)

// HashObject computes the SHA-1 of the envelope "type len\0content",
// mirroring Git's object hashing.
func HashObject(objType Type, data []byte) OID {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(data)
	var id OID
	copy(id[:], h.Sum(nil))
	return id
}
