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

package parallel

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestParallel(t *testing.T) {
	var count atomic.Int64
	err := Parallel(context.Background(), 100, 4, func(workerId, jobId int) error {
		count.Inc()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), count.Load())
}

func TestParallelError(t *testing.T) {
	err := Parallel(context.Background(), 100, 4, func(workerId, jobId int) error {
		if jobId == 42 {
			return errors.New("oops")
		}
		return nil
	})
	assert.ErrorContains(t, err, "oops")
}

func TestParallelCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Parallel(ctx, 100, 4, func(workerId, jobId int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFor(t *testing.T) {
	var count atomic.Int64
	For(100, 4, func(i int) {
		count.Inc()
	})
	assert.Equal(t, int64(100), count.Load())
}

func TestForEach(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	var sum atomic.Int64
	ForEach(a, 3, func(i, v int) {
		sum.Add(int64(v))
	})
	assert.Equal(t, int64(15), sum.Load())
}

func TestSplit(t *testing.T) {
	assert.Nil(t, Split([]int{}, 3))
	chunks := Split([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, chunks)
	chunks = Split([]int{1, 2}, 3)
	assert.Equal(t, [][]int{{1}, {2}}, chunks)
}
