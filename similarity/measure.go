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

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/vector"
)

// NoThreshold disables similarity thresholding.
const NoThreshold float32 = -math32.MaxFloat32

// Measure is the capability set shared by the normalization and aggregation
// stages. The same resolved value must be used by both, which the pipeline
// guarantees by resolving the measure once at configuration time.
type Measure interface {
	// Normalize prepares a row vector before pairwise contributions are
	// emitted.
	Normalize(v vector.SparseVector) vector.SparseVector
	// Norm computes the per-row aggregate the final similarity needs. It
	// travels through the statistics side channel because the aggregation
	// stage only ever sees columns, never complete rows.
	Norm(v vector.SparseVector) float32
	// Similarity computes the final score from the merged dot-product
	// contribution and the global column statistics.
	Similarity(dot, normA, normB float32, numberOfColumns int) float32
	// Consider reports whether a pair of columns can possibly reach the
	// threshold. It must never reject a pair whose true score is above the
	// threshold.
	Consider(nonZeroA, nonZeroB int, maxA, maxB, threshold float32) bool
}

var measures = map[string]Measure{
	"cosine":        cosine{},
	"pearson":       pearson{},
	"euclidean":     euclidean{},
	"cityblock":     cityBlock{},
	"tanimoto":      tanimoto{},
	"loglikelihood": logLikelihood{},
	"cooccurrence":  cooccurrence{},
}

// New resolves a measure by name. The name space is closed: unknown names are
// configuration errors surfaced before any row is processed.
func New(name string) (Measure, error) {
	if m, ok := measures[name]; ok {
		return m, nil
	}
	return nil, errors.NotValidf("similarity measure %q", name)
}

// Names lists the known measure names in lexical order.
func Names() []string {
	names := make([]string, 0, len(measures))
	for name := range measures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type cosine struct{}

func (cosine) Normalize(v vector.SparseVector) vector.SparseVector {
	norm := v.Norm(2)
	if norm == 0 {
		return v.Clone()
	}
	c := v.Clone()
	c.Scale(1 / norm)
	return c
}

func (cosine) Norm(_ vector.SparseVector) float32 {
	// rows are unit vectors after Normalize
	return 1
}

func (cosine) Similarity(dot, _, _ float32, _ int) float32 {
	return dot
}

func (cosine) Consider(nonZeroA, nonZeroB int, maxA, maxB, threshold float32) bool {
	bound := float32(min(nonZeroA, nonZeroB)) * maxA * maxB
	return bound >= threshold
}

// pearson is a mean-centered cosine: values are centered around the mean of
// the non-zero elements, then cosine-normalized.
type pearson struct{ cosine }

func (p pearson) Normalize(v vector.SparseVector) vector.SparseVector {
	if v.NonZeroCount() == 0 {
		return v.Clone()
	}
	var sum float32
	v.Iterate(func(_ int32, value float32) {
		sum += value
	})
	mean := sum / float32(v.NonZeroCount())
	centered := vector.New()
	v.Iterate(func(index int32, value float32) {
		centered.Set(index, value-mean)
	})
	return p.cosine.Normalize(centered)
}

type euclidean struct{}

func (euclidean) Normalize(v vector.SparseVector) vector.SparseVector {
	return v.Clone()
}

func (euclidean) Norm(v vector.SparseVector) float32 {
	// squared L2 norm, so distance² = normA - 2·dot + normB
	var sum float32
	v.Iterate(func(_ int32, value float32) {
		sum += value * value
	})
	return sum
}

func (euclidean) Similarity(dot, normA, normB float32, _ int) float32 {
	distance := math32.Sqrt(math32.Max(0, normA-2*dot+normB))
	return 1 / (1 + distance)
}

func (euclidean) Consider(_, _ int, _, _, _ float32) bool {
	return true
}

type cityBlock struct{}

func (cityBlock) Normalize(v vector.SparseVector) vector.SparseVector {
	return v.Clone()
}

func (cityBlock) Norm(v vector.SparseVector) float32 {
	return float32(v.NonZeroCount())
}

func (cityBlock) Similarity(dot, normA, normB float32, _ int) float32 {
	return 1 / (1 + normA + normB - 2*dot)
}

func (cityBlock) Consider(_, _ int, _, _, _ float32) bool {
	return true
}

type countBased struct{}

func (countBased) Normalize(v vector.SparseVector) vector.SparseVector {
	return v.Clone()
}

func (countBased) Norm(v vector.SparseVector) float32 {
	return float32(v.NonZeroCount())
}

type tanimoto struct{ countBased }

func (tanimoto) Similarity(dot, normA, normB float32, _ int) float32 {
	return dot / (normA + normB - dot)
}

func (tanimoto) Consider(nonZeroA, nonZeroB int, _, _, threshold float32) bool {
	// dot ≤ min(cntA, cntB) and the denominator is at least max(cntA, cntB)
	bound := float32(min(nonZeroA, nonZeroB)) / float32(max(nonZeroA, nonZeroB))
	return bound >= threshold
}

type logLikelihood struct{ countBased }

func (logLikelihood) Similarity(dot, normA, normB float32, numberOfColumns int) float32 {
	k11 := int64(dot)
	k12 := int64(normB - dot)
	k21 := int64(normA - dot)
	k22 := int64(float32(numberOfColumns) - normA - normB + dot)
	llr := logLikelihoodRatio(k11, k12, k21, k22)
	return float32(1 - 1/(1+llr))
}

func (logLikelihood) Consider(_, _ int, _, _, _ float32) bool {
	return true
}

type cooccurrence struct{ countBased }

func (cooccurrence) Similarity(dot, _, _ float32, _ int) float32 {
	return dot
}

func (cooccurrence) Consider(_, _ int, _, _, _ float32) bool {
	return true
}
