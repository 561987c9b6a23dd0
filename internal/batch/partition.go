package batch

import "fmt"

// Partition splits items into workerCount slices by round robin: item i
// goes to partition i mod workerCount. Sizes differ by at most one and
// the assignment is stable for a given input order. An empty input
// yields workerCount empty partitions.
func Partition(items []*Item, workerCount int) ([][]*Item, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workerCount)
	}

	parts := make([][]*Item, workerCount)
	for i, item := range items {
		idx := i % workerCount
		parts[idx] = append(parts[idx], item)
	}

	return parts, nil
}
