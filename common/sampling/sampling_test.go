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

package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleSmallInput(t *testing.T) {
	a := []int{1, 2, 3}
	assert.Equal(t, a, Sample(a, 5, 42))
	assert.Equal(t, a, Sample(a, 3, 42))
	assert.Equal(t, a, Sample(a, 0, 42))
}

func TestSampleDeterministic(t *testing.T) {
	a := make([]int, 1000)
	for i := range a {
		a[i] = i
	}
	first := Sample(a, 10, 42)
	second := Sample(a, 10, 42)
	assert.Len(t, first, 10)
	assert.Equal(t, first, second)
	// a different seed should (overwhelmingly) pick a different sample
	assert.NotEqual(t, first, Sample(a, 10, 43))
	// samples are drawn without replacement
	seen := make(map[int]bool)
	for _, v := range first {
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestSampleDoesNotModifyInput(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	_ = Sample(a, 3, 7)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, a)
}
