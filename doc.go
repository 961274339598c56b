// Package vocabmatch narrows exhaustive image matching of a photo collection to a small
// set of candidate pairs using vocabulary-tree retrieval over local image descriptors.
//
// The pipeline is strictly sequential:
//
//	loader → chunkstore → Learn (optional) → Database.Build → [persist] → Scorer → Selector → export
//
// # Learning a Vocabulary
//
//	tree := vocabtree.New(vocabtree.WithSeed(1))
//	err := vocabmatch.Learn(ctx, tree, batches, vocabmatch.DefaultLearnConfig())
//
// # Building a Database
//
//	db := vocabmatch.NewDatabase(tree, vocabmatch.WithLogger(logger))
//	err = db.Build(batches, vocabmatch.DefaultWeighting())
//	err = tree.Write("db.vt")
//
// # Matching
//
//	scorer, _ := db.Scorer()
//	sel := vocabmatch.NewSelector(scorer, 0.4)
//	matrix := vocabmatch.NewScoreMatrix(len(batches))
//	pairs, _ := sel.Run(batches, matrix)
//	err = vocabmatch.WritePairs(w, pairs)
//
// The clustering engine is injected through the Engine interface; vocabtree provides
// the default implementation.
package vocabmatch
