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

package multiply

import (
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
)

// prefAndColumn is one partial product: a user's preference value for some
// item paired with that item's similarity row. The similarity row is shared,
// not copied; aggregation never mutates it.
type prefAndColumn struct {
	value        float32
	similarities vector.SparseVector
}

// fanOut fans one item's joined state out to its raters.
func fanOut(_ int32, joined VectorAndPrefs, out mapreduce.Emitter[int32, prefAndColumn]) error {
	for i, userID := range joined.UserIDs {
		err := out.Emit(userID, prefAndColumn{value: joined.Values[i], similarities: joined.Similarities})
		if err != nil {
			return errors.Trace(err)
		}
		PartialProductsTotal.Inc()
	}
	return nil
}

// aggregateReducer sums one user's partial products into a score vector.
// Sparse-vector addition is associative and commutative, so the result does
// not depend on the order partials arrive in.
type aggregateReducer struct {
	booleanData bool
}

func (r *aggregateReducer) Reduce(userID int32, partials []prefAndColumn, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	scores := vector.New()
	for _, partial := range partials {
		if r.booleanData {
			scores.Plus(partial.similarities)
		} else {
			scores.PlusScaled(partial.similarities, partial.value)
		}
	}
	if scores.NonZeroCount() == 0 {
		return nil
	}
	return errors.Trace(out.Emit(userID, scores))
}
