// Package distance provides the distance modes used to compare visual-word vectors
// and the descriptor-to-centroid distance used while descending a vocabulary tree.
//
// # Distance Modes
//
//   - TypeDot: inner product of weighted word vectors (L2 normalization)
//   - TypeMin: histogram intersection, sum of element-wise minima (L1 normalization)
//
// # Usage
//
//	d := distance.SquaredL2Bytes(desc, centroid)
//	score += distance.TypeMin.Accumulate(q, v)
package distance
