package cli

import (
	"fmt"
	"io"

	"github.com/hupe1980/vocabmatch"
)

// progressSteps is the number of progress lines printed per stage.
const progressSteps = 10

// NewProgress returns a ProgressFunc that prints "label: done/total (pct%)" to w at
// every tenth of the work and on completion.
func NewProgress(w io.Writer, label string) vocabmatch.ProgressFunc {
	last := -1
	return func(completed, total int) {
		if total <= 0 {
			return
		}
		step := completed * progressSteps / total
		if step == last && completed != total {
			return
		}
		last = step
		fmt.Fprintf(w, "%s: %d/%d (%d%%)\n", label, completed, total, completed*100/total)
	}
}
