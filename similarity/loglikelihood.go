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

package similarity

import "math"

// logLikelihoodRatio computes 2·(H(matrix) - H(rows) - H(columns)) for the
// 2x2 contingency table (k11, k12, k21, k22). Entropies are computed in
// float64: the counts can be large and the ratio is sensitive to rounding.
func logLikelihoodRatio(k11, k12, k21, k22 int64) float64 {
	rowEntropy := entropy(k11+k12, k21+k22)
	columnEntropy := entropy(k11+k21, k12+k22)
	matrixEntropy := entropy(k11, k12, k21, k22)
	if rowEntropy+columnEntropy < matrixEntropy {
		// round-off
		return 0
	}
	return 2 * (rowEntropy + columnEntropy - matrixEntropy)
}

func xLogX(x int64) float64 {
	if x <= 0 {
		return 0
	}
	return float64(x) * math.Log(float64(x))
}

func entropy(elements ...int64) float64 {
	var sum int64
	var result float64
	for _, x := range elements {
		result += xLogX(x)
		sum += x
	}
	return xLogX(sum) - result
}
