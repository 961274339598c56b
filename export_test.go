package vocabmatch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairs_RoundTrip(t *testing.T) {
	pairs := NewPairSet()
	pairs.Add(3, 10)
	pairs.Add(0, 2)
	pairs.Add(0, 1)

	var buf bytes.Buffer
	require.NoError(t, WritePairs(&buf, pairs))
	assert.Equal(t, "0 1\n0 2\n3 10\n", buf.String())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, pairs.Len())

	got, err := ReadPairs(&buf)
	require.NoError(t, err)
	assert.Equal(t, pairs.Sorted(), got.Sorted())
}

func TestReadPairs_Malformed(t *testing.T) {
	cases := map[string]string{
		"one field":   "1\n",
		"three":       "1 2 3\n",
		"not integer": "a 2\n",
		"unordered":   "2 1\n",
		"diagonal":    "4 4\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPairs(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformedPairs)
		})
	}

	got, err := ReadPairs(strings.NewReader("\n0 1\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestScoreMatrix_RoundTrip(t *testing.T) {
	m := NewScoreMatrix(3)
	m.Set(0, 1, 0.5)
	m.Set(1, 0, 0.25)
	m.Set(2, 2, 1)
	m.Set(0, 2, 1e-7)

	var buf bytes.Buffer
	require.NoError(t, WriteScoreMatrix(&buf, m))
	assert.Equal(t, "0 0.5 1e-07\n0.25 0 0\n0 0 1\n", buf.String())

	got, err := ReadScoreMatrix(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, got.Size())
	for i := 0; i < 3; i++ {
		assert.Equal(t, m.Row(i), got.Row(i))
	}
}

func TestReadScoreMatrix_Malformed(t *testing.T) {
	_, err := ReadScoreMatrix(strings.NewReader("0 1\n0\n"))
	assert.ErrorIs(t, err, ErrMalformedMatrix)

	_, err = ReadScoreMatrix(strings.NewReader("0 x\n1 0\n"))
	assert.ErrorIs(t, err, ErrMalformedMatrix)
}

func TestExportFiles(t *testing.T) {
	dir := t.TempDir()
	pairs := NewPairSet()
	pairs.Add(1, 2)

	pairsPath := filepath.Join(dir, "pairs.txt")
	require.NoError(t, ExportPairsFile(pairsPath, pairs))
	data, err := os.ReadFile(pairsPath)
	require.NoError(t, err)
	assert.Equal(t, "1 2\n", string(data))

	matrixPath := filepath.Join(dir, "scores.txt")
	require.NoError(t, ExportScoreMatrixFile(matrixPath, NewScoreMatrix(2)))
	data, err = os.ReadFile(matrixPath)
	require.NoError(t, err)
	assert.Equal(t, "0 0\n0 0\n", string(data))

	assert.Error(t, ExportPairsFile(filepath.Join(dir, "missing", "p.txt"), pairs))
}
