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

// Dict maps external 64-bit IDs to dense 32-bit indices and back. The dense
// index is the internal item or user ID optimized for smaller keys and less
// memory.
type Dict struct {
	li map[int64]int32
	il []int64
}

func New() *Dict {
	return &Dict{li: make(map[int64]int32)}
}

// Count returns the number of IDs.
func (d *Dict) Count() int {
	return len(d.il)
}

// Index returns the dense index of id, assigning a new one on first sight.
func (d *Dict) Index(id int64) int32 {
	if i, ok := d.li[id]; ok {
		return i
	}
	i := int32(len(d.il))
	d.li[id] = i
	d.il = append(d.il, id)
	return i
}

// Lookup returns the dense index of id without assigning one.
func (d *Dict) Lookup(id int64) (int32, bool) {
	i, ok := d.li[id]
	return i, ok
}

// ID returns the external ID of a dense index.
func (d *Dict) ID(index int32) (int64, bool) {
	if index < 0 || int(index) >= len(d.il) {
		return 0, false
	}
	return d.il[index], true
}

// IDs returns the dense-index-ordered external IDs.
func (d *Dict) IDs() []int64 {
	return d.il
}

// FromIDs rebuilds a dict from a dense-index-ordered ID list.
func FromIDs(ids []int64) *Dict {
	d := &Dict{li: make(map[int64]int32, len(ids)), il: ids}
	for i, id := range ids {
		d.li[id] = int32(i)
	}
	return d
}
