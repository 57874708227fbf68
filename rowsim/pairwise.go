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

package rowsim

import (
	"context"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/similarity"
	"github.com/rowsim-io/rowsim/vector"
)

// cooccurrenceMapper walks one column of the transposed normalized matrix
// and emits dot-product contributions for every pair of rows non-zero in
// that column. Pairs are emitted upper-triangular (a ≤ b) so each unordered
// pair accumulates under exactly one key.
type cooccurrenceMapper struct {
	measure   similarity.Measure
	threshold float32
	stats     *Statistics
}

func (m *cooccurrenceMapper) Map(_ int32, column vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	indices := column.SortedIndices()
	for x, a := range indices {
		valueA := column.Get(a)
		for _, b := range indices[x:] {
			if m.threshold != similarity.NoThreshold && !m.measure.Consider(
				int(m.stats.NonZeroEntries.Get(a)), int(m.stats.NonZeroEntries.Get(b)),
				m.stats.MaxValues.Get(a), m.stats.MaxValues.Get(b), m.threshold) {
				PrunedPairsTotal.Inc()
				continue
			}
			if err := out.Emit(a, vector.Singleton(b, valueA*column.Get(b))); err != nil {
				return errors.Trace(err)
			}
			CooccurrencesEmittedTotal.Inc()
		}
	}
	return nil
}

func (m *cooccurrenceMapper) Close(mapreduce.Emitter[int32, vector.SparseVector]) error {
	return nil
}

// similarityReducer merges the dot-product contributions of one similarity
// row and finalizes scores against the global statistics. The global norms
// are required here: a single partial contribution never carries enough
// information for cosine-style measures.
type similarityReducer struct {
	measure         similarity.Measure
	threshold       float32
	numberOfColumns int
	excludeSelf     bool
	stats           *Statistics
}

func (r *similarityReducer) Reduce(row int32, partials []vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	dots := vector.New()
	for _, partial := range partials {
		dots.Plus(partial)
	}
	similarities := vector.New()
	normA := r.stats.Norms.Get(row)
	dots.Iterate(func(b int32, dot float32) {
		if r.excludeSelf && b == row {
			return
		}
		score := r.measure.Similarity(dot, normA, r.stats.Norms.Get(b), r.numberOfColumns)
		if r.threshold == similarity.NoThreshold || score >= r.threshold {
			similarities.Set(b, score)
		}
	})
	if similarities.NonZeroCount() == 0 {
		return nil
	}
	return errors.Trace(out.Emit(row, similarities))
}

// runPairwise computes the upper-triangular similarity matrix from the
// merged columns and the global statistics.
func runPairwise(
	ctx context.Context,
	measure similarity.Measure,
	threshold float32,
	numberOfColumns int,
	excludeSelf bool,
	columns []mapreduce.Record[int32, vector.SparseVector],
	stats *Statistics,
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	return mapreduce.Run(ctx, columns,
		func(int) mapreduce.Mapper[int32, vector.SparseVector, int32, vector.SparseVector] {
			return &cooccurrenceMapper{measure: measure, threshold: threshold, stats: stats}
		},
		&similarityReducer{
			measure:         measure,
			threshold:       threshold,
			numberOfColumns: numberOfColumns,
			excludeSelf:     excludeSelf,
			stats:           stats,
		},
		opts)
}
