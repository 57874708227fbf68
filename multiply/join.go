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
	"github.com/rowsim-io/rowsim/common/sampling"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
)

// joinSource tags one input record of the join stage. Exactly one field is
// set: similarities for a similarity-matrix row keyed by item index, prefs
// for a preference vector keyed by user index.
type joinSource struct {
	similarities vector.SparseVector
	prefs        vector.SparseVector
}

// vectorOrPref is the tagged value both sides of the join emit under an item
// key. A nil similarities field marks the preference arm.
type vectorOrPref struct {
	similarities vector.SparseVector
	userID       int32
	value        float32
}

// VectorAndPrefs is one item's joined state: its similarity row plus the
// parallel lists of users who rated it and their preference values. It is
// the artifact persisted between the partial-multiply and aggregate phases,
// hence the exported fields.
type VectorAndPrefs struct {
	Similarities vector.SparseVector
	UserIDs      []int32
	Values       []float32
}

// joinMapper routes both input kinds under item keys. Similarity rows pass
// through with their self-similarity entry removed so an item never
// recommends itself into a user's scores. Preference vectors split into one
// record per rated item, down-sampled when the user exceeds the cap.
type joinMapper struct {
	maxPrefsPerUser int
	seed            int64
}

func (m *joinMapper) Map(key int32, src joinSource, out mapreduce.Emitter[int32, vectorOrPref]) error {
	if src.similarities != nil {
		row := src.similarities.Clone()
		row.Set(key, 0)
		return errors.Trace(out.Emit(key, vectorOrPref{similarities: row}))
	}
	items := src.prefs.SortedIndices()
	if m.maxPrefsPerUser > 0 && len(items) > m.maxPrefsPerUser {
		items = sampling.Sample(items, m.maxPrefsPerUser, m.seed^int64(key))
		SampledUsersTotal.Inc()
	}
	for _, item := range items {
		if err := out.Emit(item, vectorOrPref{userID: key, value: src.prefs.Get(item)}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (m *joinMapper) Close(mapreduce.Emitter[int32, vectorOrPref]) error {
	return nil
}

// toVectorAndPrefs folds one item's tagged records into its joined state.
// Items missing either side drop out here: without a similarity row the item
// contributes nothing, and without raters there is nothing to multiply.
func toVectorAndPrefs(item int32, values []vectorOrPref, out mapreduce.Emitter[int32, VectorAndPrefs]) error {
	var joined VectorAndPrefs
	for _, v := range values {
		if v.similarities != nil {
			if joined.Similarities != nil {
				return errors.Errorf("two similarity rows for item %d", item)
			}
			joined.Similarities = v.similarities
		} else {
			joined.UserIDs = append(joined.UserIDs, v.userID)
			joined.Values = append(joined.Values, v.value)
		}
	}
	if joined.Similarities == nil || len(joined.UserIDs) == 0 {
		return nil
	}
	return errors.Trace(out.Emit(item, joined))
}
