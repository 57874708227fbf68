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

package mapreduce

import (
	"context"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

// wordCountMapper keeps a partition-local count flushed on Close, the same
// shape the normalization stage uses for its statistics side channel.
type wordCountMapper struct {
	partitionWords int
}

func (m *wordCountMapper) Map(_ int, line string, out Emitter[string, int]) error {
	for _, word := range strings.Fields(line) {
		m.partitionWords++
		if err := out.Emit(word, 1); err != nil {
			return err
		}
	}
	return nil
}

func (m *wordCountMapper) Close(out Emitter[string, int]) error {
	return out.Emit("#total", m.partitionWords)
}

func sumReducer(key string, values []int, out Emitter[string, int]) error {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return out.Emit(key, sum)
}

func TestRunWordCount(t *testing.T) {
	records := []Record[int, string]{
		{0, "a b a"},
		{1, "b c"},
		{2, "a"},
		{3, "c c c"},
	}
	for _, partitions := range []int{1, 2, 4} {
		out, err := Run(context.Background(), records,
			func(int) Mapper[int, string, string, int] { return &wordCountMapper{} },
			ReducerFunc[string, int, string, int](sumReducer),
			Options{NumPartitions: partitions, NumWorkers: 4})
		assert.NoError(t, err)
		counts := make(map[string]int)
		for _, record := range out {
			counts[record.Key] = record.Value
		}
		// partition-local flushes must sum to the direct full-data count
		assert.Equal(t, map[string]int{"a": 3, "b": 2, "c": 4, "#total": 9}, counts,
			"partitions=%d", partitions)
	}
}

func TestCloseRunsOnEmptyInput(t *testing.T) {
	groups, err := MapShuffle(context.Background(), nil,
		func(int) Mapper[int, string, string, int] { return &wordCountMapper{} },
		Options{})
	assert.NoError(t, err)
	assert.Equal(t, []int{0}, groups["#total"])
}

func TestMapError(t *testing.T) {
	records := []Record[int, int]{{0, 0}, {1, 1}, {2, 2}}
	_, err := MapShuffle(context.Background(), records,
		func(int) Mapper[int, int, int, int] {
			return MapperFunc[int, int, int, int](func(key, value int, out Emitter[int, int]) error {
				if value == 1 {
					return errors.New("bad record")
				}
				return out.Emit(key, value)
			})
		},
		Options{NumWorkers: 2})
	assert.ErrorContains(t, err, "bad record")
}

func TestReduceError(t *testing.T) {
	groups := map[int][]int{1: {1}, 2: {2}}
	_, err := Reduce(context.Background(), groups,
		ReducerFunc[int, int, int, int](func(key int, values []int, out Emitter[int, int]) error {
			if key == 2 {
				return errors.New("bad group")
			}
			return out.Emit(key, values[0])
		}),
		Options{NumWorkers: 2})
	assert.ErrorContains(t, err, "bad group")
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := []Record[int, int]{{0, 0}}
	_, err := MapShuffle(ctx, records,
		func(int) Mapper[int, int, int, int] {
			return MapperFunc[int, int, int, int](func(key, value int, out Emitter[int, int]) error {
				return out.Emit(key, value)
			})
		},
		Options{NumWorkers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
