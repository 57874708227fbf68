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

// Package prepare turns raw preference records into the matrices the pipeline
// consumes: per-user preference vectors, the item-major rating matrix, and
// the ID indices translating external 64-bit IDs to dense internal indices.
package prepare

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/common/dict"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
	"go.uber.org/zap"
)

// Config tunes preparation.
type Config struct {
	// BooleanData ignores preference values: every record becomes 1.
	BooleanData bool
	// MinPrefsPerUser drops users with fewer preferences. Zero or one keeps
	// everyone.
	MinPrefsPerUser int
}

// Output is everything preparation produces.
type Output struct {
	// UserVectors holds one preference vector per surviving user, keyed by
	// internal user index.
	UserVectors []mapreduce.Record[int32, vector.SparseVector]
	// RatingMatrix is the item-major transpose of the surviving preferences,
	// keyed by internal item index.
	RatingMatrix []mapreduce.Record[int32, vector.SparseVector]
	// UserIndex and ItemIndex map external IDs to the internal indices used
	// everywhere downstream.
	UserIndex *dict.Dict
	ItemIndex *dict.Dict
	// NumberOfUsers counts the users that survived the minimum-preferences
	// filter.
	NumberOfUsers int
}

type rating struct {
	item  int32
	value float32
}

// Run parses "userID,itemID[,value]" records from r and builds the prepared
// matrices. A missing value means 1. Records with negative IDs or malformed
// fields fail the run with the offending line number.
func Run(ctx context.Context, r io.Reader, cfg Config, opts mapreduce.Options) (*Output, error) {
	users := dict.New()
	items := dict.New()
	var ratings []mapreduce.Record[int32, rating]
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		userID, itemID, value, err := parseRecord(line, cfg.BooleanData)
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNo)
		}
		ratings = append(ratings, mapreduce.Record[int32, rating]{
			Key:   users.Index(userID),
			Value: rating{item: items.Index(itemID), value: value},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	userVectors, err := mapreduce.Run(ctx, ratings,
		func(int) mapreduce.Mapper[int32, rating, int32, rating] {
			return mapreduce.MapperFunc[int32, rating, int32, rating](passRating)
		},
		&toUserVectors{minPrefs: cfg.MinPrefsPerUser},
		opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	matrix, err := mapreduce.Run(ctx, userVectors,
		func(int) mapreduce.Mapper[int32, vector.SparseVector, int32, vector.SparseVector] {
			return mapreduce.MapperFunc[int32, vector.SparseVector, int32, vector.SparseVector](toItemVectors)
		},
		mapreduce.ReducerFunc[int32, vector.SparseVector, int32, vector.SparseVector](mergeVectors),
		opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("preference matrix prepared",
		zap.Int("ratings", len(ratings)),
		zap.Int("users", len(userVectors)),
		zap.Int("items", len(matrix)))
	return &Output{
		UserVectors:   userVectors,
		RatingMatrix:  matrix,
		UserIndex:     users,
		ItemIndex:     items,
		NumberOfUsers: len(userVectors),
	}, nil
}

func parseRecord(line string, booleanData bool) (userID, itemID int64, value float32, err error) {
	fields := strings.Split(line, ",")
	if len(fields) != 2 && len(fields) != 3 {
		return 0, 0, 0, errors.NotValidf("record %q", line)
	}
	userID, err = strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return 0, 0, 0, errors.NotValidf("user ID %q", fields[0])
	}
	itemID, err = strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return 0, 0, 0, errors.NotValidf("item ID %q", fields[1])
	}
	if userID < 0 || itemID < 0 {
		return 0, 0, 0, errors.NotValidf("negative ID in record %q", line)
	}
	value = 1
	if len(fields) == 3 && !booleanData {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 32)
		if err != nil {
			return 0, 0, 0, errors.NotValidf("preference value %q", fields[2])
		}
		value = float32(parsed)
	}
	return userID, itemID, value, nil
}

func passRating(user int32, r rating, out mapreduce.Emitter[int32, rating]) error {
	return out.Emit(user, r)
}

// toUserVectors folds one user's ratings into a preference vector. A repeated
// (user, item) pair keeps the last value seen; with unordered grouping that
// means an arbitrary one, so inputs should not carry duplicates they care
// about. Users below the minimum preference count are dropped.
type toUserVectors struct {
	minPrefs int
}

func (r *toUserVectors) Reduce(user int32, ratings []rating, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	prefs := vector.New()
	for _, rt := range ratings {
		prefs.Set(rt.item, rt.value)
	}
	if r.minPrefs > 1 && prefs.NonZeroCount() < r.minPrefs {
		return nil
	}
	return errors.Trace(out.Emit(user, prefs))
}

// toItemVectors transposes surviving user vectors into item-major partials.
func toItemVectors(user int32, prefs vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	var failed error
	prefs.Iterate(func(item int32, value float32) {
		if failed != nil {
			return
		}
		failed = out.Emit(item, vector.Singleton(user, value))
	})
	return errors.Trace(failed)
}

func mergeVectors(item int32, partials []vector.SparseVector, out mapreduce.Emitter[int32, vector.SparseVector]) error {
	merged := vector.New()
	for _, partial := range partials {
		merged.Plus(partial)
	}
	return out.Emit(item, merged)
}
