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

// Package recommend extracts per-user top-N recommendations from aggregated
// score vectors and writes them as JSON lines.
package recommend

import (
	"io"
	"sort"

	"github.com/bits-and-blooms/bitset"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/common/dict"
	"github.com/rowsim-io/rowsim/common/heap"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
)

// Recommendation is one scored item.
type Recommendation struct {
	ItemID int64   `json:"item_id"`
	Score  float32 `json:"score"`
}

// UserRecommendations is one output record: a user's recommendations ordered
// by descending score, ties broken by ascending item ID.
type UserRecommendations struct {
	UserID int64            `json:"user_id"`
	Items  []Recommendation `json:"items"`
}

// Config tunes the extractor.
type Config struct {
	// NumRecommendations is the maximum number of items emitted per user.
	NumRecommendations int
	// AllowedItems restricts recommendations to this set of internal item
	// indices. Nil means no restriction.
	AllowedItems mapset.Set[int32]
	// ItemIndex maps internal item indices back to external IDs. Nil emits
	// the internal indices as IDs.
	ItemIndex *dict.Dict
	// UserIndex maps internal user indices back to external IDs. Nil emits
	// the internal indices as IDs.
	UserIndex *dict.Dict
}

// Extractor turns score vectors into recommendation lists.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.NumRecommendations <= 0 {
		return nil, errors.NotValidf("number of recommendations %d", cfg.NumRecommendations)
	}
	return &Extractor{cfg: cfg}, nil
}

// Extract returns a user's top recommendations. Items the user already has a
// preference for are excluded through a bitset mask over prefs. Fewer than N
// qualifying items yields a shorter list, never padding.
func (e *Extractor) Extract(userID int32, scores, prefs vector.SparseVector) UserRecommendations {
	var known bitset.BitSet
	prefs.Iterate(func(index int32, _ float32) {
		known.Set(uint(index))
	})
	filter := heap.NewTopKFilter[int32, float32](e.cfg.NumRecommendations)
	scores.Iterate(func(index int32, score float32) {
		if known.Test(uint(index)) {
			return
		}
		if e.cfg.AllowedItems != nil && !e.cfg.AllowedItems.Contains(index) {
			return
		}
		filter.Push(index, score)
	})
	elems := filter.PopAll()
	items := make([]Recommendation, 0, len(elems))
	for _, elem := range elems {
		items = append(items, Recommendation{ItemID: e.itemID(elem.Value), Score: elem.Weight})
	}
	// the filter orders ties by internal index; re-establish the ordering on
	// the external IDs they mapped to
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})
	return UserRecommendations{UserID: e.userID(userID), Items: items}
}

// Run extracts recommendations for every scored user and writes them to w as
// JSON lines. Users are processed in ascending index order so the output is
// reproducible. Users without a score vector produce no line.
func (e *Extractor) Run(
	scores []mapreduce.Record[int32, vector.SparseVector],
	userVectors []mapreduce.Record[int32, vector.SparseVector],
	w io.Writer,
) error {
	prefs := make(map[int32]vector.SparseVector, len(userVectors))
	for _, record := range userVectors {
		prefs[record.Key] = record.Value
	}
	ordered := make([]mapreduce.Record[int32, vector.SparseVector], len(scores))
	copy(ordered, scores)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })
	encoder := json.NewEncoder(w)
	for _, record := range ordered {
		line := e.Extract(record.Key, record.Value, prefs[record.Key])
		if len(line.Items) == 0 {
			continue
		}
		if err := encoder.Encode(line); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (e *Extractor) itemID(index int32) int64 {
	if e.cfg.ItemIndex == nil {
		return int64(index)
	}
	if id, ok := e.cfg.ItemIndex.ID(index); ok {
		return id
	}
	return int64(index)
}

func (e *Extractor) userID(index int32) int64 {
	if e.cfg.UserIndex == nil {
		return int64(index)
	}
	if id, ok := e.cfg.UserIndex.ID(index); ok {
		return id
	}
	return int64(index)
}
