/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package duration

import (
	"context"
	"math"
)

// pidController is a minimal discrete PID stepper used to build a spaced
// range of intermediate values between a start and an end value. No
// pidcontroller package was present in the retrieval for this repo, so the
// algorithm is reimplemented here rather than left unwired.
type pidController struct {
	rateP float64
	rateI float64
	rateD float64
}

func newPID(rateP, rateI, rateD float64) *pidController {
	return &pidController{rateP: rateP, rateI: rateI, rateD: rateD}
}

// RangeCtx walks from `from` to `to`, accumulating a list of intermediate
// values. Each step's size is driven by a PID loop on the remaining error,
// so the range starts coarse and refines as it nears the target. Stops
// early if ctx is canceled.
func (p *pidController) RangeCtx(ctx context.Context, from, to float64) []float64 {
	var (
		out       = []float64{from}
		integral  float64
		prevErr   = to - from
		cur       = from
		direction = 1.0
	)

	if to < from {
		direction = -1.0
	}

	for i := 0; i < 64; i++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		err := (to - cur) * direction
		if err <= 0 {
			break
		}

		integral += err
		deriv := err - prevErr
		prevErr = err

		step := p.rateP*err + p.rateI*integral + p.rateD*deriv
		if step <= 0 {
			step = err / 2
		}

		cur += step * direction

		if (direction > 0 && cur >= to) || (direction < 0 && cur <= to) {
			break
		}

		out = append(out, math.Round(cur*1000)/1000)
	}

	out = append(out, to)

	return out
}
