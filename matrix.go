package vocabmatch

// ScoreMatrix is a dense, row-major n×n score matrix. Row i holds the scores of query
// image i against every database image. It is zero-initialized and never symmetrized.
type ScoreMatrix struct {
	n    int
	data []float32
}

// NewScoreMatrix creates a zeroed n×n matrix.
func NewScoreMatrix(n int) *ScoreMatrix {
	return &ScoreMatrix{n: n, data: make([]float32, n*n)}
}

// Size returns the side length.
func (m *ScoreMatrix) Size() int {
	return m.n
}

// Row returns row i. The slice aliases the matrix.
func (m *ScoreMatrix) Row(i int) []float32 {
	return m.data[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// At returns the score of query i against image j.
func (m *ScoreMatrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Set sets the score of query i against image j.
func (m *ScoreMatrix) Set(i, j int, v float32) {
	m.data[i*m.n+j] = v
}
