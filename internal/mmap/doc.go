// Package mmap provides read-only memory-mapped file access.
//
// Persisted vocabulary databases are decoded straight from the mapping, so the
// compressed payload is never copied into a heap buffer first.
//
//	m, err := mmap.Open("vocab.db")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix uses mmap(2) with madvise(2) hints; Windows uses CreateFileMapping and
// MapViewOfFile, where Advise is a no-op.
package mmap
