// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff runs op up to attempts times, doubling the delay between
// tries. It stops early when the context is done and returns the last error.
func RetryWithBackoff(ctx context.Context, attempts int, delay time.Duration, op func() error) error {
	if attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", attempts)
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = op(); err == nil {
			return nil
		}
	}
	return err
}
