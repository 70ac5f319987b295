package classify

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/lthms/thoughtpool/internal/store"
)

// sampleRecent picks up to n notes at random, favouring recent ones with
// weight 1/(1+age in days). The picked notes keep their input order.
func sampleRecent(notes []store.Thought, n int, now time.Time, rnd *rand.Rand) []store.Thought {
	if n <= 0 || len(notes) <= n {
		return notes
	}

	weights := make([]float64, len(notes))
	var total float64
	for i, t := range notes {
		days := math.Max(0, now.Sub(t.CreatedAt).Hours()/24)
		weights[i] = 1 / (1 + days)
		total += weights[i]
	}

	picked := make([]bool, len(notes))
	for range n {
		r := rnd.Float64() * total
		last := -1
		for i, w := range weights {
			if picked[i] {
				continue
			}
			last = i
			if r -= w; r <= 0 {
				break
			}
		}
		// Rounding can leave r slightly positive; take the last candidate.
		picked[last] = true
		total -= weights[last]
	}

	out := make([]store.Thought, 0, n)
	for i, t := range notes {
		if picked[i] {
			out = append(out, t)
		}
	}
	return out
}
