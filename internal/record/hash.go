package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuery   = "facetview/query/v1"
	DomainRecords = "facetview/records/v1"
	DomainMemo    = "facetview/memo/v1"
)

// Hash computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data), hex encoded.
// The null byte separator prevents domain/data boundary ambiguity.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordsHash computes a content-addressed identity for a record collection.
// Order matters: the same records in a different order hash differently.
func RecordsHash(records []Record) (string, error) {
	arr := make(Array, len(records))
	for i, r := range records {
		arr[i] = Object(r)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("RecordsHash: failed to marshal: %w", err)
	}
	return Hash(DomainRecords, canonical), nil
}
