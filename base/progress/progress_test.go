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

package progress

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestTracer(t *testing.T) {
	tracer := NewTracer("test")
	ctx, span := tracer.Start(context.Background(), "phase", 10)
	span.Add(3)
	assert.Equal(t, 3, span.Count())

	_, child := Start(ctx, "partition", 5)
	child.Add(5)
	child.End()
	assert.Equal(t, 5, child.Count())

	span.End()
	list := tracer.List()
	assert.Len(t, list, 1)
	assert.Equal(t, StatusComplete, list[0].Status)
	assert.Equal(t, 10, list[0].Count)
}

func TestSpanFail(t *testing.T) {
	tracer := NewTracer("test")
	_, span := tracer.Start(context.Background(), "phase", 1)
	span.Fail(errors.New("boom"))
	list := tracer.List()
	assert.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
	assert.Equal(t, "boom", list[0].Error)
}
