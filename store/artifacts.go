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

package store

import (
	"io"

	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/encoding"
	"github.com/rowsim-io/rowsim/common/dict"
	"github.com/rowsim-io/rowsim/mapreduce"
	"github.com/rowsim-io/rowsim/vector"
)

// record is the on-disk shape of one keyed value. Every record is one
// length-prefixed gob frame, so counting records never decodes them.
type record[V any] struct {
	Key   int32
	Value V
}

// WriteRecords persists keyed records as a stream of framed gob blobs. The
// value type must carry exported fields only.
func WriteRecords[V any](s Store, name string, records []mapreduce.Record[int32, V]) error {
	w, err := s.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	defer w.Close()
	for _, r := range records {
		if err = encoding.WriteGob(w, record[V]{Key: r.Key, Value: r.Value}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(w.Close())
}

// ReadRecords loads a record artifact written by WriteRecords.
func ReadRecords[V any](s Store, name string) ([]mapreduce.Record[int32, V], error) {
	r, err := s.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	var records []mapreduce.Record[int32, V]
	for {
		var rec record[V]
		if err = encoding.ReadGob(r, &rec); err != nil {
			if errors.Cause(err) == io.EOF {
				return records, nil
			}
			return nil, errors.Trace(err)
		}
		records = append(records, mapreduce.Record[int32, V]{Key: rec.Key, Value: rec.Value})
	}
}

// WriteVectors persists keyed sparse vectors.
func WriteVectors(s Store, name string, records []mapreduce.Record[int32, vector.SparseVector]) error {
	return WriteRecords(s, name, records)
}

// ReadVectors loads a sparse-vector artifact.
func ReadVectors(s Store, name string) ([]mapreduce.Record[int32, vector.SparseVector], error) {
	return ReadRecords[vector.SparseVector](s, name)
}

// CountRecords counts the records of a vector artifact by walking its frames
// without decoding them. It backs derived-parameter recomputation when the
// producing phase is skipped.
func CountRecords(s Store, name string) (int, error) {
	r, err := s.Open(name)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer r.Close()
	count := 0
	for {
		if _, err = encoding.ReadBytes(r); err != nil {
			if errors.Cause(err) == io.EOF {
				return count, nil
			}
			return 0, errors.Trace(err)
		}
		count++
	}
}

// WriteCount persists one scalar count.
func WriteCount(s Store, name string, count int) error {
	w, err := s.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	defer w.Close()
	if err = encoding.WriteGob(w, int64(count)); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}

// ReadCount loads a scalar count artifact.
func ReadCount(s Store, name string) (int, error) {
	r, err := s.Open(name)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer r.Close()
	var count int64
	if err = encoding.ReadGob(r, &count); err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}

// WriteIndex persists an ID index as its dense-index-ordered ID list.
func WriteIndex(s Store, name string, index *dict.Dict) error {
	w, err := s.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	defer w.Close()
	if err = encoding.WriteGob(w, index.IDs()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}

// ReadIndex loads an ID index artifact.
func ReadIndex(s Store, name string) (*dict.Dict, error) {
	r, err := s.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	var ids []int64
	if err = encoding.ReadGob(r, &ids); err != nil {
		return nil, errors.Trace(err)
	}
	return dict.FromIDs(ids), nil
}
