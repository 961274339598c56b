// Package conv provides checked integer conversions for image ids and on-disk
// counts.
package conv
