// Package node normalizes the shape-variable payloads returned by legacy
// repository query operations into uniform node records.
//
// Different server generations wrap the same logical result in different
// envelopes: a bare array, a nested result set with rows, a singular legacy
// field, or a generic item list. Individual rows are equally inconsistent:
// some carry a canonical node reference directly, others only a column array
// from which the reference has to be reconstructed out of well-known
// store-protocol, store-identifier and node-uuid properties.
//
// The pipeline has two stages. Flatten peels the envelope and yields raw
// per-node sub-records regardless of shape; Build turns one sub-record into
// a Record or reports it unconstructible. Normalize runs both and returns
// the surviving records together with a count of the dropped ones, so
// callers can surface partial-decode loss instead of silently discarding it.
package node
