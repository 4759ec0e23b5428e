// Package noderef implements the three-part node reference used to identify
// items in a content repository: store scheme, store address, and item ID,
// with the canonical string form "scheme://address/id".
//
// References are immutable value types. Parse and String are exact inverses
// for every well-formed reference.
package noderef
