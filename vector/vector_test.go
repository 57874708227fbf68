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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	v := New()
	v.Set(3, 1.5)
	v.Set(100000, 2)
	assert.Equal(t, float32(1.5), v.Get(3))
	assert.Equal(t, float32(0), v.Get(4))
	assert.Equal(t, 2, v.NonZeroCount())
	// setting zero removes the entry
	v.Set(3, 0)
	assert.Equal(t, 1, v.NonZeroCount())
	v.Add(100000, -2)
	assert.Equal(t, 0, v.NonZeroCount())
}

func TestMax(t *testing.T) {
	assert.Equal(t, float32(0), New().Max())
	v := SparseVector{1: -3, 2: 0.5, 7: 0.25}
	assert.Equal(t, float32(0.5), v.Max())
}

func TestSortedIndices(t *testing.T) {
	v := SparseVector{9: 1, 2: 1, 5: 1}
	assert.Equal(t, []int32{2, 5, 9}, v.SortedIndices())
}

func TestPlus(t *testing.T) {
	v := SparseVector{1: 1, 2: 2}
	v.Plus(SparseVector{2: 3, 4: 4})
	assert.Equal(t, SparseVector{1: 1, 2: 5, 4: 4}, v)
	v.PlusScaled(SparseVector{1: 2}, 0.5)
	assert.Equal(t, float32(2), v.Get(1))
}

func TestPlusOrderIndependent(t *testing.T) {
	partials := make([]SparseVector, 8)
	for i := range partials {
		partials[i] = SparseVector{int32(i % 3): float32(i) + 0.5}
	}
	expected := New()
	for _, p := range partials {
		expected.Plus(p)
	}
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		rng.Shuffle(len(partials), func(i, j int) {
			partials[i], partials[j] = partials[j], partials[i]
		})
		sum := New()
		for _, p := range partials {
			sum.Plus(p)
		}
		for index, value := range expected {
			assert.InDelta(t, value, sum.Get(index), 1e-5)
		}
	}
}

func TestNormDot(t *testing.T) {
	v := SparseVector{1: 3, 2: 4}
	assert.InDelta(t, 5, v.Norm(2), 1e-6)
	assert.InDelta(t, 7, v.Norm(1), 1e-6)
	other := SparseVector{2: 2, 3: 10}
	assert.InDelta(t, 8, v.Dot(other), 1e-6)
	assert.InDelta(t, 8, other.Dot(v), 1e-6)
}

func TestCloneScale(t *testing.T) {
	v := SparseVector{1: 2, 2: 4}
	c := v.Clone()
	c.Scale(0.5)
	assert.Equal(t, SparseVector{1: 1, 2: 2}, c)
	assert.Equal(t, SparseVector{1: 2, 2: 4}, v)
}
