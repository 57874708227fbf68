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

package similarity

import (
	"testing"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/vector"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	for _, name := range Names() {
		m, err := New(name)
		assert.NoError(t, err)
		assert.NotNil(t, m)
	}
	_, err := New("unknown")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"cityblock", "cooccurrence", "cosine", "euclidean",
		"loglikelihood", "pearson", "tanimoto",
	}, Names())
}

func TestCosineNormalizeFixedPoint(t *testing.T) {
	m, _ := New("cosine")
	v := vector.SparseVector{1: 3, 2: 4}
	normalized := m.Normalize(v)
	assert.InDelta(t, 1, normalized.Norm(2), 1e-5)
	// normalizing twice is a no-op
	again := m.Normalize(normalized)
	assert.InDelta(t, 1, again.Norm(2), 1e-5)
	// the input is untouched
	assert.Equal(t, float32(3), v.Get(1))
	// zero vectors stay zero
	assert.Equal(t, 0, m.Normalize(vector.New()).NonZeroCount())
}

func TestCosineBooleanData(t *testing.T) {
	m, _ := New("cosine")
	// two boolean rows sharing one of two preferences each
	a := m.Normalize(vector.SparseVector{1: 1, 2: 1})
	b := m.Normalize(vector.SparseVector{2: 1, 3: 1})
	dot := a.Dot(b)
	assert.InDelta(t, 0.5, m.Similarity(dot, m.Norm(a), m.Norm(b), 4), 1e-5)
}

func TestPearsonCentersBeforeNormalizing(t *testing.T) {
	m, _ := New("pearson")
	v := vector.SparseVector{1: 1, 2: 2, 3: 3}
	normalized := m.Normalize(v)
	// centered around mean 2, so index 2 vanishes
	assert.Equal(t, float32(0), normalized.Get(2))
	assert.InDelta(t, 1, normalized.Norm(2), 1e-5)
}

func TestEuclidean(t *testing.T) {
	m, _ := New("euclidean")
	a := vector.SparseVector{1: 1}
	b := vector.SparseVector{2: 1}
	// distance sqrt(2) between orthogonal unit rows
	sim := m.Similarity(a.Dot(b), m.Norm(a), m.Norm(b), 4)
	assert.InDelta(t, 1/(1+1.4142135), sim, 1e-5)
	// identical rows have similarity 1
	assert.InDelta(t, 1, m.Similarity(a.Dot(a), m.Norm(a), m.Norm(a), 4), 1e-5)
}

func TestTanimoto(t *testing.T) {
	m, _ := New("tanimoto")
	a := vector.SparseVector{1: 1, 2: 1}
	b := vector.SparseVector{2: 1, 3: 1}
	sim := m.Similarity(a.Dot(b), m.Norm(a), m.Norm(b), 4)
	assert.InDelta(t, 1.0/3.0, sim, 1e-5)
}

func TestCityBlock(t *testing.T) {
	m, _ := New("cityblock")
	a := vector.SparseVector{1: 1, 2: 1}
	b := vector.SparseVector{2: 1, 3: 1}
	sim := m.Similarity(a.Dot(b), m.Norm(a), m.Norm(b), 4)
	assert.InDelta(t, 1.0/3.0, sim, 1e-5)
}

func TestLogLikelihood(t *testing.T) {
	m, _ := New("loglikelihood")
	a := vector.SparseVector{1: 1, 2: 1}
	b := vector.SparseVector{2: 1, 3: 1}
	sim := m.Similarity(a.Dot(b), m.Norm(a), m.Norm(b), 4)
	assert.GreaterOrEqual(t, sim, float32(0))
	assert.Less(t, sim, float32(1))
	// disjoint rows carry no evidence of co-occurrence
	c := vector.SparseVector{3: 1, 4: 1}
	disjoint := m.Similarity(a.Dot(c), m.Norm(a), m.Norm(c), 5)
	assert.LessOrEqual(t, disjoint, sim)
}

func TestCooccurrence(t *testing.T) {
	m, _ := New("cooccurrence")
	a := vector.SparseVector{1: 1, 2: 1}
	b := vector.SparseVector{2: 1, 3: 1}
	assert.Equal(t, float32(1), m.Similarity(a.Dot(b), m.Norm(a), m.Norm(b), 4))
}

func TestConsiderNeverRejectsReachablePairs(t *testing.T) {
	m, _ := New("cosine")
	a := m.Normalize(vector.SparseVector{1: 1, 2: 1})
	b := m.Normalize(vector.SparseVector{2: 1, 3: 1})
	sim := m.Similarity(a.Dot(b), 1, 1, 4)
	// any threshold at or below the true score must pass Consider
	assert.True(t, m.Consider(a.NonZeroCount(), b.NonZeroCount(), a.Max(), b.Max(), sim))
	assert.True(t, m.Consider(a.NonZeroCount(), b.NonZeroCount(), a.Max(), b.Max(), NoThreshold))
}
