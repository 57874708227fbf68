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

// Package job orchestrates the recommendation pipeline: five ordered,
// independently skippable phases exchanging artifacts through the store.
// The first failing phase aborts the run; artifacts of completed phases are
// left intact so a later run can resume by skipping them.
package job

import (
	"context"
	"os"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/base/progress"
	"github.com/rowsim-io/rowsim/config"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/multiply"
	"github.com/rowsim-io/rowsim/prepare"
	"github.com/rowsim-io/rowsim/recommend"
	"github.com/rowsim-io/rowsim/rowsim"
	"github.com/rowsim-io/rowsim/store"
	"go.uber.org/zap"
)

// Phase names one pipeline phase.
type Phase string

const (
	PhasePrepare         Phase = "prepare"
	PhaseSimilarity      Phase = "similarity"
	PhasePartialMultiply Phase = "partial_multiply"
	PhaseAggregate       Phase = "aggregate"
	PhaseRecommend       Phase = "recommend"
)

// Phases lists the phases in execution order.
func Phases() []Phase {
	return []Phase{PhasePrepare, PhaseSimilarity, PhasePartialMultiply, PhaseAggregate, PhaseRecommend}
}

// Artifact names, one per phase output.
const (
	UserVectorsArtifact      = "prepare/user_vectors"
	RatingMatrixArtifact     = "prepare/rating_matrix"
	UserIndexArtifact        = "prepare/user_index"
	ItemIndexArtifact        = "prepare/item_index"
	NumberOfUsersArtifact    = "prepare/number_of_users"
	SimilarityMatrixArtifact = "similarity/matrix"
	PartialProductsArtifact  = "multiply/partial_products"
	UserScoresArtifact       = "aggregate/user_scores"
	RecommendationsArtifact  = "recommend/recommendations.jsonl"
)

// taskTimeout guards the shuffle-heavy phases against stalled merges.
const taskTimeout = time.Hour

// Runner executes one pipeline run.
type Runner struct {
	cfg      *config.Config
	store    store.Store
	tracer   *progress.Tracer
	skip     map[Phase]bool
	prepared bool
}

// NewRunner validates the configuration and builds a runner. Phases listed in
// skip are not executed; later phases then read whatever artifacts an earlier
// run left in the store.
func NewRunner(cfg *config.Config, s store.Store, skip []Phase) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	skipSet := make(map[Phase]bool, len(skip))
	for _, phase := range skip {
		skipSet[phase] = true
	}
	return &Runner{
		cfg:    cfg,
		store:  s,
		tracer: progress.NewTracer("pipeline"),
		skip:   skipSet,
	}, nil
}

// Progress returns a snapshot of all phase spans.
func (r *Runner) Progress() []progress.Progress {
	return r.tracer.List()
}

// Run executes the phases in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	for _, phase := range []struct {
		name Phase
		run  func(context.Context) error
	}{
		{PhasePrepare, r.runPrepare},
		{PhaseSimilarity, r.runSimilarity},
		{PhasePartialMultiply, r.runPartialMultiply},
		{PhaseAggregate, r.runAggregate},
		{PhaseRecommend, r.runRecommend},
	} {
		if r.skip[phase.name] {
			log.Logger().Info("phase skipped", zap.String("phase", string(phase.name)))
			continue
		}
		spanCtx, span := r.tracer.Start(ctx, string(phase.name), 1)
		start := time.Now()
		log.Logger().Info("phase started", zap.String("phase", string(phase.name)))
		if err := phase.run(spanCtx); err != nil {
			span.Fail(err)
			log.Logger().Error("phase failed",
				zap.String("phase", string(phase.name)), zap.Error(err))
			return errors.Annotatef(err, "phase %s", phase.name)
		}
		span.End()
		log.Logger().Info("phase complete",
			zap.String("phase", string(phase.name)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// options is the plain engine tuning used by light phases.
func (r *Runner) options() mapreduce.Options {
	return mapreduce.Options{
		NumPartitions: r.cfg.Engine.NumPartitions,
		NumWorkers:    r.cfg.Engine.NumWorkers,
	}
}

// tunedOptions adds the shuffle tuning for the large-fan-in phases: sort
// buffer of half the heap capped at 1 GiB, plus the long task timeout.
func (r *Runner) tunedOptions() mapreduce.Options {
	opts := r.options()
	opts.SortBufferMB = min(r.cfg.Engine.HeapMB/2, 1024)
	opts.TaskTimeout = taskTimeout
	return opts
}

func (r *Runner) runPrepare(ctx context.Context) error {
	f, err := os.Open(r.cfg.Input.Path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	output, err := prepare.Run(ctx, f, prepare.Config{
		BooleanData:     r.cfg.Input.BooleanData,
		MinPrefsPerUser: r.cfg.Input.MinPrefsPerUser,
	}, r.options())
	if err != nil {
		return errors.Trace(err)
	}
	if err = store.WriteVectors(r.store, UserVectorsArtifact, output.UserVectors); err != nil {
		return errors.Trace(err)
	}
	if err = store.WriteVectors(r.store, RatingMatrixArtifact, output.RatingMatrix); err != nil {
		return errors.Trace(err)
	}
	if err = store.WriteIndex(r.store, UserIndexArtifact, output.UserIndex); err != nil {
		return errors.Trace(err)
	}
	if err = store.WriteIndex(r.store, ItemIndexArtifact, output.ItemIndex); err != nil {
		return errors.Trace(err)
	}
	if err = store.WriteCount(r.store, NumberOfUsersArtifact, output.NumberOfUsers); err != nil {
		return errors.Trace(err)
	}
	r.prepared = true
	return nil
}

// numberOfUsers comes from the prepare phase when it ran in this process.
// When prepare was skipped, the persisted count may belong to a different
// input, so it is recomputed from the user-vectors artifact itself.
func (r *Runner) numberOfUsers() (int, error) {
	if r.prepared {
		return store.ReadCount(r.store, NumberOfUsersArtifact)
	}
	count, err := store.CountRecords(r.store, UserVectorsArtifact)
	if err != nil {
		return 0, errors.Trace(err)
	}
	log.Logger().Info("recomputed number of users", zap.Int("users", count))
	return count, nil
}

func (r *Runner) runSimilarity(ctx context.Context) error {
	numberOfUsers, err := r.numberOfUsers()
	if err != nil {
		return errors.Trace(err)
	}
	matrix, err := store.ReadVectors(r.store, RatingMatrixArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	job, err := rowsim.NewJob(rowsim.Config{
		Measure:               r.cfg.Similarity.Measure,
		Threshold:             r.cfg.Similarity.Threshold,
		MaxSimilaritiesPerRow: r.cfg.Similarity.MaxSimilaritiesPerItem,
		ExcludeSelfSimilarity: r.cfg.Similarity.ExcludeSelfSimilarity,
		NumberOfColumns:       numberOfUsers,
		TransposeOutput:       r.cfg.Similarity.TransposeOutput,
	})
	if err != nil {
		return errors.Trace(err)
	}
	similarities, err := job.Run(ctx, matrix, r.tunedOptions())
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(store.WriteVectors(r.store, SimilarityMatrixArtifact, similarities))
}

func (r *Runner) pipeline() (*multiply.Pipeline, error) {
	return multiply.NewPipeline(multiply.Config{
		MaxPrefsPerUser: r.cfg.Multiply.MaxPrefsPerUser,
		BooleanData:     r.cfg.Input.BooleanData,
		SampleSeed:      r.cfg.Multiply.SampleSeed,
	})
}

func (r *Runner) runPartialMultiply(ctx context.Context) error {
	pipeline, err := r.pipeline()
	if err != nil {
		return errors.Trace(err)
	}
	similarities, err := store.ReadVectors(r.store, SimilarityMatrixArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	userVectors, err := store.ReadVectors(r.store, UserVectorsArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	joined, err := pipeline.PartialMultiply(ctx, similarities, userVectors, r.tunedOptions())
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(store.WriteRecords(r.store, PartialProductsArtifact, joined))
}

func (r *Runner) runAggregate(ctx context.Context) error {
	pipeline, err := r.pipeline()
	if err != nil {
		return errors.Trace(err)
	}
	joined, err := store.ReadRecords[multiply.VectorAndPrefs](r.store, PartialProductsArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	scores, err := pipeline.Aggregate(ctx, joined, r.tunedOptions())
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(store.WriteVectors(r.store, UserScoresArtifact, scores))
}

func (r *Runner) runRecommend(context.Context) error {
	scores, err := store.ReadVectors(r.store, UserScoresArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	userVectors, err := store.ReadVectors(r.store, UserVectorsArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	userIndex, err := store.ReadIndex(r.store, UserIndexArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	itemIndex, err := store.ReadIndex(r.store, ItemIndexArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	var allowed mapset.Set[int32]
	if r.cfg.Recommend.ItemsFile != "" {
		f, err := os.Open(r.cfg.Recommend.ItemsFile)
		if err != nil {
			return errors.Trace(err)
		}
		defer f.Close()
		if allowed, err = recommend.LoadAllowedItems(f, itemIndex); err != nil {
			return errors.Trace(err)
		}
	}
	extractor, err := recommend.NewExtractor(recommend.Config{
		NumRecommendations: r.cfg.Recommend.NumRecommendations,
		AllowedItems:       allowed,
		ItemIndex:          itemIndex,
		UserIndex:          userIndex,
	})
	if err != nil {
		return errors.Trace(err)
	}
	w, err := r.store.Create(RecommendationsArtifact)
	if err != nil {
		return errors.Trace(err)
	}
	defer w.Close()
	if err = extractor.Run(scores, userVectors, w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}
