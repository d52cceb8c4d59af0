package features

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSp
	}
	return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFSp
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
}

// melFilter is one triangular filter over the bins [start, start+len(weights)).
type melFilter struct {
	start   int
	weights []float64
}

// melFilterbank builds Slaney area-normalized triangular filters over the
// one-sided spectrum of an fftSize-point transform.
func melFilterbank(sampleRate, fftSize, bands int, fmin, fmax float64) []melFilter {
	bins := fftSize/2 + 1
	binHz := make([]float64, bins)
	for k := range binHz {
		binHz[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// bands+2 edge frequencies equally spaced on the mel scale
	lo, hi := hzToMel(fmin), hzToMel(fmax)
	edges := make([]float64, bands+2)
	for i := range edges {
		edges[i] = melToHz(lo + (hi-lo)*float64(i)/float64(bands+1))
	}

	filters := make([]melFilter, bands)
	for m := range bands {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		enorm := 2 / (right - left)

		row := make([]float64, bins)
		first, last := -1, -1
		for k, f := range binHz {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Max(0, math.Min(lower, upper))
			if w > 0 {
				row[k] = w * enorm
				if first < 0 {
					first = k
				}
				last = k
			}
		}

		if first < 0 {
			filters[m] = melFilter{}
			continue
		}
		filters[m] = melFilter{start: first, weights: row[first : last+1]}
	}
	return filters
}

// apply returns the filter's energy for a power spectrum.
func (f melFilter) apply(power []float64) float64 {
	var sum float64
	for i, w := range f.weights {
		sum += w * power[f.start+i]
	}
	return sum
}
