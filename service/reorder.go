package service

import "fmt"

// MoveItem applies the drag-and-drop permutation: the element at from is
// spliced out and re-inserted at to, shifting everything in between. Dropping
// an element onto itself returns the input untouched.
func MoveItem[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, fmt.Errorf("reorder index out of range: from=%d to=%d len=%d", from, to, len(items))
	}
	if from == to {
		return items, nil
	}
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}
