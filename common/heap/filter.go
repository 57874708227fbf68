// Copyright 2025 rowsim Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// TopKFilter filters out top k items with maximum weights. Ties on weight are
// broken by the least value, so the retained set is deterministic regardless
// of push order.
type TopKFilter[E constraints.Ordered, W constraints.Ordered] struct {
	_heap[E, W]
	k int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter[E constraints.Ordered, W constraints.Ordered](k int) *TopKFilter[E, W] {
	return &TopKFilter[E, W]{k: k}
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (filter *TopKFilter[E, W]) Push(item E, weight W) {
	heap.Push(&filter._heap, Elem[E, W]{item, weight})
	if filter.Len() > filter.k {
		heap.Pop(&filter._heap)
	}
}

// PopAll pops all items in the filter with decreasing weights.
func (filter *TopKFilter[E, W]) PopAll() []Elem[E, W] {
	elems := make([]Elem[E, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i] = heap.Pop(&filter._heap).(Elem[E, W])
	}
	return elems
}

// PopAllValues pops all items in the filter with decreasing weights and
// returns values only.
func (filter *TopKFilter[E, W]) PopAllValues() []E {
	elems := filter.PopAll()
	values := make([]E, len(elems))
	for i, elem := range elems {
		values[i] = elem.Value
	}
	return values
}
