// Package testutil provides testing utilities for vocabmatch.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and synthetic descriptor corpora.
//
// # Random Descriptors
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Descriptors(100, descriptor.Dim) // uniform bytes
//
// # Clustered Corpora
//
//	centers := testutil.SeparatedCenters(4, descriptor.Dim)
//	batch := rng.ClusteredBatch([][]byte{centers[0], centers[2]}, 10, 3)
package testutil
