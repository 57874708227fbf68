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

package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDict(t *testing.T) {
	d := New()
	assert.Equal(t, int32(0), d.Index(1000000007))
	assert.Equal(t, int32(1), d.Index(42))
	assert.Equal(t, int32(0), d.Index(1000000007))
	assert.Equal(t, 2, d.Count())

	index, ok := d.Lookup(42)
	assert.True(t, ok)
	assert.Equal(t, int32(1), index)
	_, ok = d.Lookup(7)
	assert.False(t, ok)

	id, ok := d.ID(0)
	assert.True(t, ok)
	assert.Equal(t, int64(1000000007), id)
	_, ok = d.ID(2)
	assert.False(t, ok)
}

func TestFromIDs(t *testing.T) {
	d := New()
	d.Index(7)
	d.Index(8)
	d.Index(9)
	rebuilt := FromIDs(d.IDs())
	assert.Equal(t, 3, rebuilt.Count())
	index, ok := rebuilt.Lookup(8)
	assert.True(t, ok)
	assert.Equal(t, int32(1), index)
}
