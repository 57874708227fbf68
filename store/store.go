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

// Package store persists the artifacts the pipeline phases exchange. Each
// artifact is written once by the producing phase and read once by the next,
// so a skipped phase can resume from what an earlier run left behind.
package store

import (
	"io"
	"os"
	"path"

	"github.com/juju/errors"
)

// Store is the artifact storage abstraction. Artifact helpers only depend on
// it, so a remote blob store can replace the local one.
type Store interface {
	// Create opens a named artifact for writing, truncating any previous one.
	Create(name string) (io.WriteCloser, error)
	// Open opens a named artifact for reading.
	Open(name string) (io.ReadCloser, error)
	// Exists reports whether a named artifact is present.
	Exists(name string) (bool, error)
}

// POSIX stores artifacts as files under one directory.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

func (p *POSIX) Create(name string) (io.WriteCloser, error) {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	file, err := os.Open(path.Join(p.dir, name))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

func (p *POSIX) Exists(name string) (bool, error) {
	_, err := os.Stat(path.Join(p.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}
