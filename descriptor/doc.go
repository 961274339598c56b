// Package descriptor defines the local image descriptor data model.
//
// A descriptor is a fixed-dimension byte vector (SIFT layout, 128 bytes). Descriptors
// of one image are carried together in a Batch. The layout of a batch is a tagged
// Format so callers can reject unsupported layouts at the loader boundary instead of
// discovering them while copying bytes.
package descriptor
