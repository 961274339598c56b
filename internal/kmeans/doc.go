// Package kmeans implements k-means clustering of byte descriptors.
//
// Used by the vocabulary tree to split each node's descriptors into visual-word
// clusters. Seeding is k-means++, so duplicated descriptors never seed two clusters.
package kmeans
