/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package workerpool runs a fixed-size batch of jobs concurrently. Run starts
// one goroutine per item with no further cap — the deliberate "pool size equals item count" choice documented for the
// Checker's per-cycle fan-out, rather than a long-lived capped pool.
package workerpool

import "sync"

// Job is one unit of work run by Run; index is the job's position in the
// input slice, letting the result be placed back at the matching index.
type Job func(index int) interface{}

// Run starts one goroutine per job (len(jobs) of them — the pool is sized
// to the batch, per the Checker's per-cycle fan-out rule) and returns their
// results in input order once every goroutine has finished.
func Run(jobs []Job) []interface{} {
	results := make([]interface{}, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		go func(i int, job Job) {
			defer wg.Done()
			results[i] = job(i)
		}(i, job)
	}

	wg.Wait()
	return results
}

// Capped runs jobs concurrently like Run but never more than max at a time,
// for callers that want to bound fan-out width explicitly (e.g. a fleet
// large enough that one goroutine per site would be wasteful) while still
// preserving per-index result placement.
func Capped(jobs []Job, max int) []interface{} {
	if max <= 0 || max >= len(jobs) {
		return Run(jobs)
	}

	results := make([]interface{}, len(jobs))
	sem := make(chan struct{}, max)

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		sem <- struct{}{}
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = job(i)
		}(i, job)
	}

	wg.Wait()
	return results
}
