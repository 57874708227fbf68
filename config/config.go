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

// Package config loads and validates the pipeline configuration. All
// configuration failures surface here, before any phase touches data.
package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/similarity"
	"github.com/spf13/viper"
)

type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Multiply   MultiplyConfig   `mapstructure:"multiply"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Engine     EngineConfig     `mapstructure:"engine"`
}

type InputConfig struct {
	// Path of the preference records, one "userID,itemID[,value]" per line.
	Path string `mapstructure:"path" validate:"required"`
	// BooleanData ignores preference values everywhere in the pipeline.
	BooleanData bool `mapstructure:"boolean_data"`
	// MinPrefsPerUser drops users with fewer preferences during preparation.
	MinPrefsPerUser int `mapstructure:"min_prefs_per_user" validate:"gte=0"`
}

type SimilarityConfig struct {
	// Measure is the similarity measure name, one of similarity.Names.
	Measure string `mapstructure:"measure" validate:"required"`
	// Threshold drops similarity scores below it. Omit to disable.
	Threshold float32 `mapstructure:"threshold"`
	// MaxSimilaritiesPerItem caps every similarity-matrix row.
	MaxSimilaritiesPerItem int `mapstructure:"max_similarities_per_item" validate:"gt=0"`
	// ExcludeSelfSimilarity removes the diagonal of the similarity matrix so
	// an item never spends a top-K slot on itself. Defaults to true.
	ExcludeSelfSimilarity bool `mapstructure:"exclude_self_similarity"`
	// TransposeOutput flips the similarity matrix orientation. The top-K cap
	// applies before the flip, so it binds per column of the flipped matrix.
	TransposeOutput bool `mapstructure:"transpose_output"`
}

type MultiplyConfig struct {
	// MaxPrefsPerUser caps how many preferences per user enter the multiply
	// phase. Zero disables sampling.
	MaxPrefsPerUser int `mapstructure:"max_prefs_per_user" validate:"gte=0"`
	// SampleSeed makes preference down-sampling reproducible.
	SampleSeed int64 `mapstructure:"sample_seed"`
}

type RecommendConfig struct {
	// NumRecommendations is the maximum list length per user.
	NumRecommendations int `mapstructure:"num_recommendations" validate:"gt=0"`
	// ItemsFile optionally restricts recommendations to the item IDs listed
	// in this file, one per line.
	ItemsFile string `mapstructure:"items_file"`
}

type EngineConfig struct {
	// OutputDir is where phase artifacts and the final recommendations live.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	// NumWorkers bounds per-stage concurrency. Zero means GOMAXPROCS.
	NumWorkers int `mapstructure:"num_workers" validate:"gte=0"`
	// NumPartitions is the mapper partition count. Zero means one per worker.
	NumPartitions int `mapstructure:"num_partitions" validate:"gte=0"`
	// HeapMB is the memory budget the sort-buffer tuning is derived from.
	HeapMB int `mapstructure:"heap_mb" validate:"gt=0"`
}

func setDefault(v *viper.Viper) {
	v.SetDefault("input.min_prefs_per_user", 1)
	v.SetDefault("similarity.measure", "cosine")
	v.SetDefault("similarity.threshold", float64(similarity.NoThreshold))
	v.SetDefault("similarity.max_similarities_per_item", 100)
	v.SetDefault("similarity.exclude_self_similarity", true)
	v.SetDefault("multiply.max_prefs_per_user", 1000)
	v.SetDefault("multiply.sample_seed", 42)
	v.SetDefault("recommend.num_recommendations", 10)
	v.SetDefault("engine.heap_mb", 2048)
}

// Load reads the configuration file, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks field constraints and resolves the similarity measure so an
// unknown name fails before any data is read.
func (conf *Config) Validate() error {
	if err := validator.New().Struct(conf); err != nil {
		return errors.NewNotValid(err, "invalid configuration")
	}
	if _, err := similarity.New(conf.Similarity.Measure); err != nil {
		return errors.Trace(err)
	}
	return nil
}
