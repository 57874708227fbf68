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

package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rowsim-io/rowsim/config"
	"github.com/rowsim-io/rowsim/recommend"
	"github.com/rowsim-io/rowsim/similarity"
	"github.com/rowsim-io/rowsim/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenario is three users over four items: u101:{1,2}, u102:{2,3}, u103:{3,4}.
const scenario = "101,1\n101,2\n102,2\n102,3\n103,3\n103,4\n"

func testConfig(t *testing.T, input string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "prefs.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))
	return &config.Config{
		Input: config.InputConfig{Path: inputPath, BooleanData: true, MinPrefsPerUser: 1},
		Similarity: config.SimilarityConfig{
			Measure:                "cosine",
			Threshold:              similarity.NoThreshold,
			MaxSimilaritiesPerItem: 10,
			ExcludeSelfSimilarity:  true,
		},
		Multiply:  config.MultiplyConfig{MaxPrefsPerUser: 100, SampleSeed: 42},
		Recommend: config.RecommendConfig{NumRecommendations: 5},
		Engine:    config.EngineConfig{OutputDir: filepath.Join(dir, "out"), NumWorkers: 2, HeapMB: 64},
	}
}

func readRecommendations(t *testing.T, conf *config.Config) map[int64][]recommend.Recommendation {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(conf.Engine.OutputDir, RecommendationsArtifact))
	require.NoError(t, err)
	results := make(map[int64][]recommend.Recommendation)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var user recommend.UserRecommendations
		require.NoError(t, json.Unmarshal([]byte(line), &user))
		results[user.UserID] = user.Items
	}
	return results
}

func TestEndToEndBooleanCosine(t *testing.T) {
	conf := testConfig(t, scenario)
	runner, err := NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	results := readRecommendations(t, conf)
	require.Len(t, results, 3)

	// u101 rated items 1 and 2; only item 3 reaches it through item 2
	require.Len(t, results[101], 1)
	assert.Equal(t, int64(3), results[101][0].ItemID)
	assert.InDelta(t, 0.5, results[101][0].Score, 1e-4)

	// u102 sees items 1 and 4 with equal scores; ties order by item ID
	require.Len(t, results[102], 2)
	assert.Equal(t, int64(1), results[102][0].ItemID)
	assert.Equal(t, int64(4), results[102][1].ItemID)
	assert.InDelta(t, results[102][0].Score, results[102][1].Score, 1e-6)

	require.Len(t, results[103], 1)
	assert.Equal(t, int64(2), results[103][0].ItemID)
}

// With the cap at one, the diagonal must not claim the only slot: every item
// still keeps its single best neighbor, and users whose neighbors are all
// already rated simply get no list.
func TestTightSimilarityCap(t *testing.T) {
	conf := testConfig(t, scenario)
	conf.Similarity.MaxSimilaritiesPerItem = 1
	runner, err := NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	results := readRecommendations(t, conf)
	// item 2 keeps item 1 (0.707 beats 0.5) and item 3 keeps item 4, so only
	// u102 has unrated neighbors left
	require.Len(t, results, 1)
	require.Len(t, results[102], 2)
	assert.Equal(t, int64(1), results[102][0].ItemID)
	assert.Equal(t, int64(4), results[102][1].ItemID)
}

func TestTransposedSimilarityOutput(t *testing.T) {
	// item 1 raters {u1,u2}, item 2 raters {u1,u2,u3}, item 3 raters {u2,u4}:
	// cos(1,2)=0.816, cos(1,3)=0.5, cos(2,3)=0.408
	const input = "1,1\n1,2\n2,1\n2,2\n2,3\n3,2\n4,3\n"

	conf := testConfig(t, input)
	conf.Similarity.MaxSimilaritiesPerItem = 1
	runner, err := NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	// row 3 keeps item 1, so u4 is reached through it
	results := readRecommendations(t, conf)
	require.Len(t, results[4], 1)
	assert.Equal(t, int64(1), results[4][0].ItemID)

	// transposed, row 3 collects the items that kept item 3: none did, so u4
	// has no scores at all
	conf = testConfig(t, input)
	conf.Similarity.MaxSimilaritiesPerItem = 1
	conf.Similarity.TransposeOutput = true
	runner, err = NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	results = readRecommendations(t, conf)
	_, ok := results[4]
	assert.False(t, ok)
	// u3 rated only item 2, whose transposed row keeps item 1
	require.Len(t, results[3], 1)
	assert.Equal(t, int64(1), results[3][0].ItemID)
}

func TestSkippedPrepareRecomputesUsers(t *testing.T) {
	conf := testConfig(t, scenario)
	s := store.NewPOSIX(conf.Engine.OutputDir)
	runner, err := NewRunner(conf, s, nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	baseline := readRecommendations(t, conf)

	// poison the persisted count: a skipped prepare must not trust it
	require.NoError(t, store.WriteCount(s, NumberOfUsersArtifact, 9999))
	rerun, err := NewRunner(conf, s, []Phase{PhasePrepare})
	require.NoError(t, err)
	require.NoError(t, rerun.Run(context.Background()))
	assert.Equal(t, baseline, readRecommendations(t, conf))
}

func TestSkipAllButRecommend(t *testing.T) {
	conf := testConfig(t, scenario)
	s := store.NewPOSIX(conf.Engine.OutputDir)
	runner, err := NewRunner(conf, s, nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	baseline := readRecommendations(t, conf)

	rerun, err := NewRunner(conf, s, []Phase{PhasePrepare, PhaseSimilarity, PhasePartialMultiply, PhaseAggregate})
	require.NoError(t, err)
	require.NoError(t, rerun.Run(context.Background()))
	assert.Equal(t, baseline, readRecommendations(t, conf))
}

func TestAllowListRestrictsOutput(t *testing.T) {
	conf := testConfig(t, scenario)
	itemsPath := filepath.Join(filepath.Dir(conf.Input.Path), "items.txt")
	require.NoError(t, os.WriteFile(itemsPath, []byte("4\n"), 0o644))
	conf.Recommend.ItemsFile = itemsPath
	runner, err := NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	results := readRecommendations(t, conf)
	require.Len(t, results, 1)
	require.Len(t, results[102], 1)
	assert.Equal(t, int64(4), results[102][0].ItemID)
}

func TestFirstFailureAborts(t *testing.T) {
	conf := testConfig(t, scenario)
	conf.Input.Path = filepath.Join(t.TempDir(), "absent.csv")
	s := store.NewPOSIX(conf.Engine.OutputDir)
	runner, err := NewRunner(conf, s, nil)
	require.NoError(t, err)
	assert.Error(t, runner.Run(context.Background()))
	// later phases never ran
	ok, err := s.Exists(SimilarityMatrixArtifact)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Exists(RecommendationsArtifact)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidConfigRejected(t *testing.T) {
	conf := testConfig(t, scenario)
	conf.Similarity.Measure = "nope"
	_, err := NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), nil)
	assert.Error(t, err)
}
