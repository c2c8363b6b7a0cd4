// Package schema is the static catalogue of node kinds, edge kinds and the
// relation fields each edge kind maintains on its endpoints.
//
// An edge kind may join several endpoint pairings (Connected joins a terminal to
// its block as well as any element to a connector); each pairing is a Binding
// that names the forward field written on the source node and the inverse field
// written on the target node. The catalogue has no mutable state.
package schema
