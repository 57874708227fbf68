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

package util

import (
	"runtime/debug"

	"github.com/rowsim-io/rowsim/base/log"
	"go.uber.org/zap"
)

// CheckPanic catches panics in worker goroutines and logs the stack.
func CheckPanic() {
	if r := recover(); r != nil {
		log.Logger().Error("panic recovered",
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
	}
}
