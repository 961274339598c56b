package hash

import (
	"errors"
	"hash/crc32"
)

// ErrChecksumMismatch is returned by Verify when data does not match its checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// crc32cTable is pre-computed for CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Verify checks data against a CRC32-C checksum.
func Verify(data []byte, want uint32) error {
	if CRC32C(data) != want {
		return ErrChecksumMismatch
	}
	return nil
}
