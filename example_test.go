package vocabmatch_test

import (
	"fmt"
	"os"

	"github.com/hupe1980/vocabmatch"
)

func ExampleWritePairs() {
	pairs := vocabmatch.NewPairSet()
	pairs.Add(2, 5)
	pairs.Add(0, 2)
	pairs.Add(5, 2) // ignored: not ordered

	if err := vocabmatch.WritePairs(os.Stdout, pairs); err != nil {
		fmt.Println(err)
	}
	// Output:
	// 0 2
	// 2 5
}
