// Package resolve reconstructs a node's full hierarchical path by walking
// its parent chain through single-node lookups.
//
// The walk is an explicit loop with an accumulator, a visited set for
// deterministic cycle detection, and a depth ceiling that also bounds the
// number of sequential round trips a single resolution may incur. The
// repository root is a distinguished terminal: a reference matching the
// configured root sentinel, a node marked as the root by its well-known icon
// property or display name, or a bare root-marker ID all stop the walk
// without further lookups.
package resolve
