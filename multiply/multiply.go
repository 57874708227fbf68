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

// Package multiply turns a similarity matrix and per-user preference vectors
// into per-user score vectors. It joins the two streams on the item index,
// then accumulates each user's score vector as the preference-weighted sum of
// the similarity rows of the items the user rated.
package multiply

import (
	"context"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
	"go.uber.org/zap"
)

// Config tunes the multiply pipeline.
type Config struct {
	// MaxPrefsPerUser caps how many of a user's preferences enter the join.
	// Users above the cap are down-sampled uniformly without replacement.
	// Zero disables sampling.
	MaxPrefsPerUser int
	// BooleanData treats preferences as present/absent: scores become plain
	// sums of similarity rows instead of preference-weighted sums.
	BooleanData bool
	// SampleSeed makes down-sampling reproducible across runs. The per-user
	// stream is seeded with SampleSeed mixed with the user ID.
	SampleSeed int64
}

// Pipeline is a configured matrix-vector multiply.
type Pipeline struct {
	cfg Config
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.MaxPrefsPerUser < 0 {
		return nil, errors.NotValidf("max prefs per user %d", cfg.MaxPrefsPerUser)
	}
	return &Pipeline{cfg: cfg}, nil
}

// PartialMultiply joins the similarity matrix with the preference vectors on
// the item index. similarities is the row-major similarity matrix keyed by
// item index; userVectors are preference vectors keyed by user index. Items
// unknown to either side produce no output record.
func (p *Pipeline) PartialMultiply(
	ctx context.Context,
	similarities []mapreduce.Record[int32, vector.SparseVector],
	userVectors []mapreduce.Record[int32, vector.SparseVector],
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, VectorAndPrefs], error) {
	inputs := make([]mapreduce.Record[int32, joinSource], 0, len(similarities)+len(userVectors))
	for _, record := range similarities {
		inputs = append(inputs, mapreduce.Record[int32, joinSource]{
			Key:   record.Key,
			Value: joinSource{similarities: record.Value},
		})
	}
	for _, record := range userVectors {
		inputs = append(inputs, mapreduce.Record[int32, joinSource]{
			Key:   record.Key,
			Value: joinSource{prefs: record.Value},
		})
	}
	joined, err := mapreduce.Run(ctx, inputs,
		func(int) mapreduce.Mapper[int32, joinSource, int32, vectorOrPref] {
			return &joinMapper{maxPrefsPerUser: p.cfg.MaxPrefsPerUser, seed: p.cfg.SampleSeed}
		},
		mapreduce.ReducerFunc[int32, vectorOrPref, int32, VectorAndPrefs](toVectorAndPrefs),
		opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("similarity rows joined with preferences",
		zap.Int("items", len(joined)))
	return joined, nil
}

// Aggregate folds the joined state into one score vector per user. Users
// whose rated items all lack similarity rows produce no output record.
func (p *Pipeline) Aggregate(
	ctx context.Context,
	joined []mapreduce.Record[int32, VectorAndPrefs],
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	scores, err := mapreduce.Run(ctx, joined,
		func(int) mapreduce.Mapper[int32, VectorAndPrefs, int32, prefAndColumn] {
			return mapreduce.MapperFunc[int32, VectorAndPrefs, int32, prefAndColumn](fanOut)
		},
		&aggregateReducer{booleanData: p.cfg.BooleanData},
		opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("user scores aggregated", zap.Int("users", len(scores)))
	return scores, nil
}

// Run chains PartialMultiply and Aggregate without persisting the joined
// state in between.
func (p *Pipeline) Run(
	ctx context.Context,
	similarities []mapreduce.Record[int32, vector.SparseVector],
	userVectors []mapreduce.Record[int32, vector.SparseVector],
	opts mapreduce.Options,
) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	joined, err := p.PartialMultiply(ctx, similarities, userVectors, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return p.Aggregate(ctx, joined, opts)
}
