package timedataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) Scale(c float64) Series {
	floats.Scale(c, s)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise with the given scale drawn from src. A nil src uses the
// global generator.
func GenerateNoise(n int, scale float64, src *rand.Rand) Series {
	norm := rand.NormFloat64
	if src != nil {
		norm = src.NormFloat64
	}
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, norm()*scale)
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave of the given order over n steps, where period is the number of
// steps in one cycle of the first order and phase is in radians
func GenerateWaveY(n int, amp, period, order, phase float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/period*float64(i)+phase)
		y = append(y, val)
	}
	return Series(y)
}
