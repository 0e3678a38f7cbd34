// Package predictor holds concrete stand-ins for the opaque model that
// drives generation. Each satisfies sampler.Predictor.
package predictor

import (
	"context"

	"github.com/jsphweid/midigen/model"
)

// Func adapts a plain function into a Predictor.
type Func func(w model.Window) ([]float64, error)

func (f Func) Predict(_ context.Context, w model.Window) ([]float64, error) {
	return f(w)
}
