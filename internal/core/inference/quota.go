// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package inference defines how the pipeline talks to a model. This file
// adds rate limiting in front of any Adapter. Remote model servers often
// enforce a request quota; the decorator keeps calls under it.
package inference

import (
	"context"

	"golang.org/x/time/rate"
)

// QuotaAwareAdapter wraps an Adapter with a token bucket limiter.
type QuotaAwareAdapter struct {
	Adapter
	RateLimit *rate.Limiter
}

// NewQuotaAwareAdapter wraps wrapped so that Infer is called at most
// requestsPerSecond times per second, with a burst of one.
func NewQuotaAwareAdapter(wrapped Adapter, requestsPerSecond float64) *QuotaAwareAdapter {
	return &QuotaAwareAdapter{
		Adapter:   wrapped,
		RateLimit: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Infer blocks until the limiter allows a call or ctx is done.
func (q *QuotaAwareAdapter) Infer(ctx context.Context, req Request) (map[string]float64, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, &Error{Adapter: q.Name(), Message: err.Error(), Err: err}
	}
	return q.Adapter.Infer(ctx, req)
}
