// Package record provides the value and schema types for facetview collections.
//
// This package contains type definitions and conversions only. Every other
// internal package imports record; record imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface: String, Number, Bool, Date, Null, Array, Object
//   - Records are immutable once built; nothing in facetview mutates them
//   - Null and an absent field are indistinguishable to filters, sorts and groups
//   - Canonical encoding (RFC 8785 ordering, NFC strings) backs every hash
package record
