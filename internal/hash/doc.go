// Package hash provides the checksums used by persisted vocabulary files.
package hash
