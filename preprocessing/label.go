package preprocessing

import "github.com/samber/lo"

// BinarizeLabels relabels a multi-class target for a one-vs-rest problem:
// entries equal to positive become 1 and everything else becomes 0.
func BinarizeLabels(y []int, positive int) []int {
	return lo.Map(y, func(label int, _ int) int {
		if label == positive {
			return 1
		}
		return 0
	})
}
