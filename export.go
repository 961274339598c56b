package vocabmatch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WritePairs writes one "i j" line per pair in sorted order.
func WritePairs(w io.Writer, pairs *PairSet) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs.Sorted() {
		if _, err := fmt.Fprintf(bw, "%d %d\n", p.I, p.J); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadPairs parses a pair list written by WritePairs. Blank lines are skipped.
func ReadPairs(r io.Reader) (*PairSet, error) {
	pairs := NewPairSet()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: want 2 fields, got %d", ErrMalformedPairs, line, len(fields))
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedPairs, line, err)
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedPairs, line, err)
		}
		if !pairs.Add(i, j) {
			return nil, fmt.Errorf("%w: line %d: pair (%d, %d) is not ordered", ErrMalformedPairs, line, i, j)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// WriteScoreMatrix writes one line per row with space-separated scores using six
// significant digits.
func WriteScoreMatrix(w io.Writer, m *ScoreMatrix) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)
	for i := 0; i < m.Size(); i++ {
		for j, v := range m.Row(i) {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], float64(v), 'g', 6, 32)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadScoreMatrix parses a matrix written by WriteScoreMatrix.
func ReadScoreMatrix(r io.Reader) (*ScoreMatrix, error) {
	var rows [][]float32
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<30)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float32, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %w", ErrMalformedMatrix, len(rows), err)
			}
			row[j] = float32(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	m := NewScoreMatrix(len(rows))
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformedMatrix, i, len(row), len(rows))
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// ExportPairsFile writes pairs to path.
func ExportPairsFile(path string, pairs *PairSet) error {
	return writeFile(path, func(w io.Writer) error { return WritePairs(w, pairs) })
}

// ExportScoreMatrixFile writes m to path.
func ExportScoreMatrixFile(path string, m *ScoreMatrix) error {
	return writeFile(path, func(w io.Writer) error { return WriteScoreMatrix(w, m) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
