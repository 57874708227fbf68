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
	"github.com/rowsim-io/rowsim/common/heap"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
)

// mirror re-emits the upper-triangular rows on both orientations so the
// top-K cap sees every candidate of every row. The diagonal, when present,
// is emitted once.
func mirror(row int32, similarities vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	if err := out.Emit(row, similarities); err != nil {
		return errors.Trace(err)
	}
	var failed error
	similarities.Iterate(func(b int32, score float32) {
		if failed != nil || b == row {
			return
		}
		failed = out.Emit(b, vector.Singleton(row, score))
	})
	return errors.Trace(failed)
}

// topKReducer merges the mirrored halves of one row and caps it to the k
// highest scores. Ties are broken by ascending column index so the retained
// set is deterministic.
type topKReducer struct {
	k int
}

func (r *topKReducer) Reduce(row int32, partials []vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	merged := vector.New()
	for _, partial := range partials {
		merged.Plus(partial)
	}
	filter := heap.NewTopKFilter[int32, float32](r.k)
	merged.Iterate(func(b int32, score float32) {
		filter.Push(b, score)
	})
	capped := vector.New()
	for _, elem := range filter.PopAll() {
		capped.Set(elem.Value, elem.Weight)
	}
	return errors.Trace(out.Emit(row, capped))
}

// runAsMatrix turns the upper-triangular similarity rows into the final
// capped matrix, optionally transposed to the other orientation. Capping
// applies to the pre-transpose rows.
func runAsMatrix(
	ctx context.Context,
	half []mapreduce.Record[int32, vector.SparseVector],
	maxSimilaritiesPerRow int,
	transpose bool,
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	matrix, err := mapreduce.Run(ctx, half,
		func(int) mapreduce.Mapper[int32, vector.SparseVector, int32, vector.SparseVector] {
			return mapreduce.MapperFunc[int32, vector.SparseVector, int32, vector.SparseVector](mirror)
		},
		&topKReducer{k: maxSimilaritiesPerRow},
		opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !transpose {
		return matrix, nil
	}
	return transposeMatrix(ctx, matrix, opts)
}

// transposeMatrix flips the orientation of a row-major sparse matrix.
func transposeMatrix(
	ctx context.Context,
	matrix []mapreduce.Record[int32, vector.SparseVector],
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	flip := func(row int32, values vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
		var failed error
		values.Iterate(func(column int32, value float32) {
			if failed != nil {
				return
			}
			failed = out.Emit(column, vector.Singleton(row, value))
		})
		return errors.Trace(failed)
	}
	merge := func(key int32, values []vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
		merged := vector.New()
		for _, v := range values {
			merged.Plus(v)
		}
		return out.Emit(key, merged)
	}
	return mapreduce.Run(ctx, matrix,
		func(int) mapreduce.Mapper[int32, vector.SparseVector, int32, vector.SparseVector] {
			return mapreduce.MapperFunc[int32, vector.SparseVector, int32, vector.SparseVector](flip)
		},
		mapreduce.ReducerFunc[int32, vector.SparseVector, int32, vector.SparseVector](merge),
		opts)
}
