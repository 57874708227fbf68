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
	"math/rand"
)

// Sample returns a uniform random sample of size at most k drawn from a
// without replacement, by reservoir sampling. The input slice is not
// modified. A fixed seed yields a reproducible sample.
func Sample[T any](a []T, k int, seed int64) []T {
	if k <= 0 || len(a) <= k {
		out := make([]T, len(a))
		copy(out, a)
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	reservoir := make([]T, k)
	copy(reservoir, a[:k])
	for i := k; i < len(a); i++ {
		j := rng.Intn(i + 1)
		if j < k {
			reservoir[j] = a[i]
		}
	}
	return reservoir
}
