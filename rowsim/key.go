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

package rowsim

// StatKind tags a global statistic routed through the normalization stage's
// output channel. Statistics share the channel with ordinary partial columns
// so that no second pass over the input is needed; tagging the key (instead
// of reserving marker indices inside the column index space) makes collision
// with real indices impossible.
type StatKind int8

const (
	// StatNone marks an ordinary partial column.
	StatNone StatKind = iota
	// StatNorm carries per-row norms.
	StatNorm
	// StatNonZero carries per-row non-zero entry counts.
	StatNonZero
	// StatMax carries per-row maximum element values.
	StatMax
)

// Key addresses the normalization stage's output: either a column of the
// transposed normalized matrix (StatNone) or one of the three global
// statistics vectors.
type Key struct {
	Stat  StatKind
	Index int32
}

func columnKey(index int32) Key {
	return Key{Stat: StatNone, Index: index}
}

func statKey(kind StatKind) Key {
	return Key{Stat: kind}
}
