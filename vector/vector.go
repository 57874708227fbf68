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

package vector

import (
	"sort"

	"github.com/chewxy/math32"
)

// SparseVector maps non-negative indices to values. Absent indices are zero.
// The dimension is nominal: it is never materialized, so vectors over an
// unbounded index space cost memory proportional to their non-zero count.
type SparseVector map[int32]float32

func New() SparseVector {
	return make(SparseVector)
}

// Singleton creates a sparse vector holding a single non-zero element.
func Singleton(index int32, value float32) SparseVector {
	return SparseVector{index: value}
}

// Get returns the value at index, zero if absent.
func (v SparseVector) Get(index int32) float32 {
	return v[index]
}

// Set stores value at index. Setting zero removes the entry so that
// iteration only ever visits non-zero elements.
func (v SparseVector) Set(index int32, value float32) {
	if value == 0 {
		delete(v, index)
	} else {
		v[index] = value
	}
}

// Add accumulates delta into the element at index.
func (v SparseVector) Add(index int32, delta float32) {
	v.Set(index, v[index]+delta)
}

// NonZeroCount returns the number of non-zero elements.
func (v SparseVector) NonZeroCount() int {
	return len(v)
}

// Max returns the maximum element value, zero for an empty vector.
func (v SparseVector) Max() float32 {
	var m float32
	first := true
	for _, value := range v {
		if first || value > m {
			m = value
			first = false
		}
	}
	return m
}

// Iterate visits every non-zero element. Order is undefined.
func (v SparseVector) Iterate(f func(index int32, value float32)) {
	for index, value := range v {
		f(index, value)
	}
}

// SortedIndices returns the non-zero indices in ascending order.
func (v SparseVector) SortedIndices() []int32 {
	indices := make([]int32, 0, len(v))
	for index := range v {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// Plus accumulates other into v element-wise. Addition is associative and
// commutative, so partial vectors may be merged in any order.
func (v SparseVector) Plus(other SparseVector) {
	for index, value := range other {
		v.Add(index, value)
	}
}

// PlusScaled accumulates s*other into v element-wise.
func (v SparseVector) PlusScaled(other SparseVector, s float32) {
	if s == 0 {
		return
	}
	for index, value := range other {
		v.Add(index, s*value)
	}
}

// Scale multiplies every element by s in place.
func (v SparseVector) Scale(s float32) {
	for index, value := range v {
		v.Set(index, value*s)
	}
}

// Clone returns a deep copy.
func (v SparseVector) Clone() SparseVector {
	c := make(SparseVector, len(v))
	for index, value := range v {
		c[index] = value
	}
	return c
}

// Norm returns the p-norm of the vector.
func (v SparseVector) Norm(p float32) float32 {
	if p == 1 {
		var sum float32
		for _, value := range v {
			sum += math32.Abs(value)
		}
		return sum
	}
	if p == 2 {
		var sum float32
		for _, value := range v {
			sum += value * value
		}
		return math32.Sqrt(sum)
	}
	var sum float32
	for _, value := range v {
		sum += math32.Pow(math32.Abs(value), p)
	}
	return math32.Pow(sum, 1/p)
}

// Dot returns the dot product of two sparse vectors.
func (v SparseVector) Dot(other SparseVector) float32 {
	a, b := v, other
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float32
	for index, value := range a {
		sum += value * b[index]
	}
	return sum
}
