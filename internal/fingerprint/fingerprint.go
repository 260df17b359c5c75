// Package fingerprint derives stable content fingerprints used as memo keys and id namespaces.
package fingerprint

import (
	"encoding/hex"

	"github.com/minio/highwayhash"
)

const prefix = "hh:"

// key is fixed so fingerprints stay comparable across runs and persisted caches.
var key = []byte("tanya-document-qa-fingerprint-k!")

// Bytes returns the fingerprint of raw content. Same bytes always give the same value.
func Bytes(data []byte) string {
	sum := highwayhash.Sum128(data, key)
	return prefix + hex.EncodeToString(sum[:])
}

// String is Bytes for text.
func String(s string) string {
	return Bytes([]byte(s))
}

// Parts fingerprints several values as one key. Parts are length-delimited so
// ("ab", "c") and ("a", "bc") differ.
func Parts(parts ...string) string {
	buf := make([]byte, 0, 64)
	for _, p := range parts {
		n := len(p)
		buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
		buf = append(buf, p...)
	}
	return Bytes(buf)
}

// Sum64 is the short form used where a numeric key is enough.
func Sum64(data []byte) uint64 {
	return highwayhash.Sum64(data, key)
}
