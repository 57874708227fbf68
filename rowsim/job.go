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

// Package rowsim computes pairwise similarities between the rows of a sparse
// matrix as three chained map/reduce stages: normalize and transpose,
// pairwise dot products, and top-K matrix assembly.
package rowsim

import (
	"context"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/similarity"
	"github.com/rowsim-io/rowsim/vector"
	"go.uber.org/zap"
)

// Config selects the measure and the output-shaping policies of one run. The
// same resolved measure drives normalization and aggregation; resolving it
// here once makes a variant mismatch between the stages unrepresentable.
type Config struct {
	// Measure is the similarity measure name. Required.
	Measure string
	// Threshold drops similarity scores below it. similarity.NoThreshold
	// disables thresholding.
	Threshold float32
	// MaxSimilaritiesPerRow caps every output row to the top-K scores.
	MaxSimilaritiesPerRow int
	// ExcludeSelfSimilarity removes the diagonal.
	ExcludeSelfSimilarity bool
	// NumberOfColumns is the column count of the input matrix, needed by
	// count-based measures.
	NumberOfColumns int
	// TransposeOutput flips the output orientation (item-based vs.
	// user-based similarity).
	TransposeOutput bool
}

// Job is a configured row-similarity computation.
type Job struct {
	cfg     Config
	measure similarity.Measure
}

// NewJob validates cfg and resolves the similarity measure. All
// configuration failures surface here, before any row is processed.
func NewJob(cfg Config) (*Job, error) {
	measure, err := similarity.New(cfg.Measure)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.MaxSimilaritiesPerRow <= 0 {
		return nil, errors.NotValidf("max similarities per row %d", cfg.MaxSimilaritiesPerRow)
	}
	if cfg.NumberOfColumns <= 0 {
		return nil, errors.NotValidf("number of columns %d", cfg.NumberOfColumns)
	}
	return &Job{cfg: cfg, measure: measure}, nil
}

// Run computes the similarity matrix of the input rows. The returned records
// are row-major: one capped sparse vector of (column, score) per row.
func (j *Job) Run(ctx context.Context, rows []mapreduce.Record[int32, vector.SparseVector], opts mapreduce.Options) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	columns, stats, err := runNormalize(ctx, j.measure, j.cfg.Threshold, rows, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("normalized rows",
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(columns)),
		zap.Int("norms", stats.Norms.NonZeroCount()))
	half, err := runPairwise(ctx, j.measure, j.cfg.Threshold, j.cfg.NumberOfColumns,
		j.cfg.ExcludeSelfSimilarity, columns, stats, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	matrix, err := runAsMatrix(ctx, half, j.cfg.MaxSimilaritiesPerRow, j.cfg.TransposeOutput, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("similarity matrix assembled", zap.Int("rows", len(matrix)))
	return matrix, nil
}
