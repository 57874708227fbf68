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

package recommend

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/common/dict"
	"go.uber.org/zap"
)

// LoadAllowedItems reads external item IDs, one per line, and resolves them
// against the item index into a set of internal indices. IDs unknown to the
// index can never be recommended anyway and are skipped with a warning. A nil
// index takes the IDs as internal indices directly.
func LoadAllowedItems(r io.Reader, items *dict.Dict) (mapset.Set[int32], error) {
	allowed := mapset.NewThreadUnsafeSet[int32]()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("item ID %q", line)
		}
		if items == nil {
			allowed.Add(int32(id))
			continue
		}
		if index, ok := items.Lookup(id); ok {
			allowed.Add(index)
		} else {
			log.Logger().Warn("allowed item not in index", zap.Int64("item_id", id))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return allowed, nil
}
