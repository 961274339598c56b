// Package chunkstore holds every descriptor byte of a corpus in a bounded set of
// contiguous chunks and exposes a flat per-descriptor pointer table.
//
// The store is sized once from the corpus total and never grows:
//
//	total, dim, err := descriptor.CountTotal(batches)
//	s := chunkstore.New()
//	err = s.Initialize(total, dim)
//	for i, b := range batches {
//		err = s.Append(i, b)
//	}
//	ptrs := s.Pointers() // len(ptrs) == total
//	defer s.Release()
package chunkstore
