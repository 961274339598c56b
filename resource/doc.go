// Package resource budgets the large resources of a run: the up-front descriptor
// chunk allocation, concurrent feature-file readers and feature-file IO throughput.
package resource
