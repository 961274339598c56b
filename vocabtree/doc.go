// Package vocabtree implements a hierarchical k-means vocabulary tree with an
// inverted-file image database.
//
// A Tree is built from a descriptor pointer table, flattened into contiguous arrays,
// populated with images, reweighted and then queried:
//
//	t := vocabtree.New(vocabtree.WithSeed(1))
//	err := t.Build(total, dim, depth, branching, restarts, pointers)
//	t.Flatten()
//	t.SetInteriorNodeWeight(0)
//	t.SetConstantLeafWeights()
//	t.ClearDatabase()
//	err = t.AddImageToDatabase(0, n, data)
//	t.ComputeTFIDFWeights(numImages)
//	t.NormalizeDatabase(0, numImages)
//	err = t.ScoreQueryKeys(n, true, query, scores)
//
// Node ids are assigned in preorder and stay stable across Flatten and persistence.
// A Tree is not safe for concurrent mutation; concurrent ScoreQueryKeys calls on a
// populated tree are safe.
package vocabtree
