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

// Package mapreduce is the execution substrate the pipeline stages run on:
// partitioned mappers, a sort-and-group barrier, and grouped reducers. The
// implementation is in-memory; stages depend only on the Mapper, Reducer and
// Emitter contracts, so a distributed substrate can be substituted without
// touching stage logic.
package mapreduce

import (
	"context"
	"runtime"
	"time"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/common/parallel"
	"go.uber.org/zap"
)

// Record is one keyed datum flowing between stages.
type Record[K comparable, V any] struct {
	Key   K
	Value V
}

// Emitter receives intermediate pairs from a mapper or reducer.
type Emitter[K comparable, V any] interface {
	Emit(key K, value V) error
}

// Mapper transforms one record at a time. The engine creates one instance per
// partition; no state is shared across partitions. Close is called exactly
// once after the partition's last record and is the flush point for
// partition-local accumulators.
type Mapper[K1 comparable, V1 any, K2 comparable, V2 any] interface {
	Map(key K1, value V1, out Emitter[K2, V2]) error
	Close(out Emitter[K2, V2]) error
}

// Reducer folds all values grouped under one key.
type Reducer[K2 comparable, V2 any, K3 comparable, V3 any] interface {
	Reduce(key K2, values []V2, out Emitter[K3, V3]) error
}

// Options carries the tuning parameters the orchestrator injects before
// launching a stage.
type Options struct {
	// NumPartitions is the number of mapper instances. Zero means one
	// partition per worker.
	NumPartitions int
	// NumWorkers bounds stage concurrency. Zero means GOMAXPROCS.
	NumWorkers int
	// SortBufferMB is the advisory shuffle buffer size. The in-memory engine
	// only records it; a distributed substrate maps it to its sort budget.
	SortBufferMB int
	// TaskTimeout aborts a stage that stops making progress, the guard
	// against long unreported merges on large fan-in.
	TaskTimeout time.Duration
}

func (opts Options) workers() int {
	if opts.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return opts.NumWorkers
}

func (opts Options) partitions() int {
	if opts.NumPartitions <= 0 {
		return opts.workers()
	}
	return opts.NumPartitions
}

// buffer is an Emitter collecting pairs for one partition.
type buffer[K comparable, V any] struct {
	records []Record[K, V]
}

func (b *buffer[K, V]) Emit(key K, value V) error {
	b.records = append(b.records, Record[K, V]{Key: key, Value: value})
	return nil
}

// MapShuffle runs mappers over disjoint partitions in parallel and groups the
// emitted pairs by key. newMapper is called once per partition. The grouped
// values carry no ordering guarantee: reducers must be order-independent.
func MapShuffle[K1 comparable, V1 any, K2 comparable, V2 any](
	ctx context.Context,
	records []Record[K1, V1],
	newMapper func(partition int) Mapper[K1, V1, K2, V2],
	opts Options,
) (map[K2][]V2, error) {
	if opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TaskTimeout)
		defer cancel()
	}
	chunks := parallel.Split(records, opts.partitions())
	if chunks == nil {
		// run Close even on empty input so side-channel flushes still happen
		chunks = [][]Record[K1, V1]{nil}
	}
	log.Logger().Debug("map stage started",
		zap.Int("records", len(records)),
		zap.Int("partitions", len(chunks)),
		zap.Int("sort_buffer_mb", opts.SortBufferMB))
	buffers := make([]buffer[K2, V2], len(chunks))
	err := parallel.Parallel(ctx, len(chunks), opts.workers(), func(_, partition int) error {
		mapper := newMapper(partition)
		out := &buffers[partition]
		for _, record := range chunks[partition] {
			if err := mapper.Map(record.Key, record.Value, out); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(mapper.Close(out))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	// sort-and-group barrier
	groups := make(map[K2][]V2)
	for i := range buffers {
		for _, record := range buffers[i].records {
			groups[record.Key] = append(groups[record.Key], record.Value)
		}
	}
	return groups, nil
}

// Reduce runs the reducer over every group in parallel and collects the
// emitted records.
func Reduce[K2 comparable, V2 any, K3 comparable, V3 any](
	ctx context.Context,
	groups map[K2][]V2,
	reducer Reducer[K2, V2, K3, V3],
	opts Options,
) ([]Record[K3, V3], error) {
	if opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TaskTimeout)
		defer cancel()
	}
	keys := make([]K2, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	workers := opts.workers()
	// one buffer per worker: a worker goroutine is the only writer of its slot
	buffers := make([]buffer[K3, V3], workers)
	err := parallel.Parallel(ctx, len(keys), workers, func(workerId, jobId int) error {
		key := keys[jobId]
		return errors.Trace(reducer.Reduce(key, groups[key], &buffers[workerId]))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	var records []Record[K3, V3]
	for i := range buffers {
		records = append(records, buffers[i].records...)
	}
	return records, nil
}

// Run chains MapShuffle and Reduce into one stage.
func Run[K1 comparable, V1 any, K2 comparable, V2 any, K3 comparable, V3 any](
	ctx context.Context,
	records []Record[K1, V1],
	newMapper func(partition int) Mapper[K1, V1, K2, V2],
	reducer Reducer[K2, V2, K3, V3],
	opts Options,
) ([]Record[K3, V3], error) {
	groups, err := MapShuffle(ctx, records, newMapper, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return Reduce(ctx, groups, reducer, opts)
}

// MapperFunc adapts a function to the Mapper interface for stages that keep
// no partition-local state.
type MapperFunc[K1 comparable, V1 any, K2 comparable, V2 any] func(key K1, value V1, out Emitter[K2, V2]) error

func (f MapperFunc[K1, V1, K2, V2]) Map(key K1, value V1, out Emitter[K2, V2]) error {
	return f(key, value, out)
}

func (f MapperFunc[K1, V1, K2, V2]) Close(Emitter[K2, V2]) error {
	return nil
}

// ReducerFunc adapts a function to the Reducer interface.
type ReducerFunc[K2 comparable, V2 any, K3 comparable, V3 any] func(key K2, values []V2, out Emitter[K3, V3]) error

func (f ReducerFunc[K2, V2, K3, V3]) Reduce(key K2, values []V2, out Emitter[K3, V3]) error {
	return f(key, values, out)
}
