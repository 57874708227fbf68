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

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/similarity"
	"github.com/rowsim-io/rowsim/vector"
)

// Statistics holds the global per-row aggregates collected as a side effect
// of normalization. Non-zero counts and maximum values are only populated
// when thresholding is enabled; norms are always populated.
type Statistics struct {
	Norms          vector.SparseVector
	NonZeroEntries vector.SparseVector
	MaxValues      vector.SparseVector
}

func newStatistics() *Statistics {
	return &Statistics{
		Norms:          vector.New(),
		NonZeroEntries: vector.New(),
		MaxValues:      vector.New(),
	}
}

// normMapper normalizes one row at a time and emits transposed partial
// columns: for every non-zero element (i, v) of row r, the singleton {r: v}
// keyed by column i. Merging the singletons grouped by column rebuilds the
// complete columns the pairwise stage needs. Per-row statistics accumulate in
// partition-local vectors and leave through the statistics side channel at
// Close, so no second pass over the input is required.
type normMapper struct {
	measure   similarity.Measure
	threshold float32
	stats     *Statistics
}

func newNormMapper(measure similarity.Measure, threshold float32) *normMapper {
	return &normMapper{
		measure:   measure,
		threshold: threshold,
		stats:     newStatistics(),
	}
}

func (m *normMapper) Map(row int32, v vector.SparseVector, out mapreduce.Emitter[Key, vector.SparseVector]) error {
	normalized := m.measure.Normalize(v)
	count := 0
	maxValue := float32(-math32.MaxFloat32)
	for _, i := range normalized.SortedIndices() {
		value := normalized.Get(i)
		if err := out.Emit(columnKey(i), vector.Singleton(row, value)); err != nil {
			return errors.Trace(err)
		}
		count++
		if value > maxValue {
			maxValue = value
		}
	}
	// statistics are recorded before any thresholding decision: rejection
	// happens downstream against the aggregated score, never per element
	if count > 0 {
		if m.threshold != similarity.NoThreshold {
			m.stats.NonZeroEntries.Set(row, float32(count))
			m.stats.MaxValues.Set(row, maxValue)
		}
		m.stats.Norms.Set(row, m.measure.Norm(normalized))
	}
	RowsProcessedTotal.Inc()
	return nil
}

func (m *normMapper) Close(out mapreduce.Emitter[Key, vector.SparseVector]) error {
	if err := out.Emit(statKey(StatNorm), m.stats.Norms); err != nil {
		return errors.Trace(err)
	}
	if err := out.Emit(statKey(StatNonZero), m.stats.NonZeroEntries); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(out.Emit(statKey(StatMax), m.stats.MaxValues))
}

// mergeVectors merges partial vectors sharing a key into one complete vector.
// Vector addition is associative and commutative, so the merge result does
// not depend on partition or arrival order.
func mergeVectors(key Key, values []vector.SparseVector, out mapreduce.Emitter[Key, vector.SparseVector]) error {
	merged := vector.New()
	for _, v := range values {
		merged.Plus(v)
	}
	return out.Emit(key, merged)
}

// runNormalize runs the normalization stage and separates the statistics
// side channel from the merged matrix columns.
func runNormalize(
	ctx context.Context,
	measure similarity.Measure,
	threshold float32,
	rows []mapreduce.Record[int32, vector.SparseVector],
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], *Statistics, error) {
	merged, err := mapreduce.Run(ctx, rows,
		func(int) mapreduce.Mapper[int32, vector.SparseVector, Key, vector.SparseVector] {
			return newNormMapper(measure, threshold)
		},
		mapreduce.ReducerFunc[Key, vector.SparseVector, Key, vector.SparseVector](mergeVectors),
		opts)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	stats := newStatistics()
	columns := make([]mapreduce.Record[int32, vector.SparseVector], 0, len(merged))
	for _, record := range merged {
		switch record.Key.Stat {
		case StatNorm:
			stats.Norms = record.Value
		case StatNonZero:
			stats.NonZeroEntries = record.Value
		case StatMax:
			stats.MaxValues = record.Value
		default:
			columns = append(columns, mapreduce.Record[int32, vector.SparseVector]{
				Key:   record.Key.Index,
				Value: record.Value,
			})
		}
	}
	return columns, stats, nil
}
