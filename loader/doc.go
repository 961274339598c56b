// Package loader reads an openMVG scene and its per-view SIFT descriptors into ordered
// descriptor batches.
//
// The layout is the one openMVG's feature extraction produces:
//
//	sfm_data.json                 views (key, filename)
//	<featDir>/image_describer.json regions type of the extracted features
//	<featDir>/<stem>.desc          uint64 LE count, then count×128 bytes
//
// Batch i belongs to the i-th view in ascending view-key order.
package loader
