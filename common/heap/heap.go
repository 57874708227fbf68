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
	"golang.org/x/exp/constraints"
)

type Elem[E constraints.Ordered, W constraints.Ordered] struct {
	Value  E
	Weight W
}

// _heap is a min-heap over weights. On equal weights, the element with the
// greater value sits closer to the top, so eviction removes greater values
// first and lookups retain the least values deterministically.
type _heap[E constraints.Ordered, W constraints.Ordered] struct {
	elems []Elem[E, W]
}

func (e *_heap[E, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[E, W]) Less(i, j int) bool {
	if e.elems[i].Weight != e.elems[j].Weight {
		return e.elems[i].Weight < e.elems[j].Weight
	}
	return e.elems[i].Value > e.elems[j].Value
}

func (e *_heap[E, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[E, W]) Push(x interface{}) {
	it := x.(Elem[E, W])
	e.elems = append(e.elems, it)
}

func (e *_heap[E, W]) Pop() interface{} {
	old := e.elems
	item := e.elems[len(old)-1]
	e.elems = old[0 : len(old)-1]
	return item
}
