package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config holds the optimizer settings of the classifier.
type Config struct {
	LearningRate float64
	Epochs       int
	L2           float64 // penalty on weights, not on the intercept
	Threshold    float64 // probability at or above which a row is predicted to churn
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{LearningRate: 0.1, Epochs: 300, L2: 0.001, Threshold: 0.5}
}

// Logistic is a binary logistic regression trained by full-batch gradient
// descent with balanced class weights. Training starts from zero weights so it
// is deterministic.
type Logistic struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// FitLogistic trains on x with 0/1 targets y.
func FitLogistic(x *mat.Dense, y []float64, cfg Config) (*Logistic, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", rows, len(y))
	}
	if cfg.Epochs <= 0 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("epochs and learning rate must be positive")
	}

	sampleWeights, err := balancedWeights(y)
	if err != nil {
		return nil, err
	}
	totalWeight := floats.Sum(sampleWeights)

	m := &Logistic{Weights: make([]float64, cols)}
	w := mat.NewVecDense(cols, m.Weights)
	z := mat.NewVecDense(rows, nil)
	residual := mat.NewVecDense(rows, nil)
	grad := mat.NewVecDense(cols, nil)

	for range cfg.Epochs {
		z.MulVec(x, w)
		var interceptGrad float64
		for i := range rows {
			r := sampleWeights[i] * (sigmoid(z.AtVec(i)+m.Intercept) - y[i])
			residual.SetVec(i, r)
			interceptGrad += r
		}
		grad.MulVec(x.T(), residual)
		grad.ScaleVec(1/totalWeight, grad)
		grad.AddScaledVec(grad, cfg.L2, w)

		w.AddScaledVec(w, -cfg.LearningRate, grad)
		m.Intercept -= cfg.LearningRate * interceptGrad / totalWeight
	}

	for _, v := range m.Weights {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("training diverged; lower the learning rate")
		}
	}
	return m, nil
}

// PredictProba returns the churn probability of every row of x.
func (m *Logistic) PredictProba(x *mat.Dense) ([]float64, error) {
	rows, cols := x.Dims()
	if cols != len(m.Weights) {
		return nil, fmt.Errorf("design matrix has %d columns, model expects %d", cols, len(m.Weights))
	}
	z := mat.NewVecDense(rows, nil)
	z.MulVec(x, mat.NewVecDense(cols, m.Weights))
	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.Intercept)
	}
	return out, nil
}

// balancedWeights weights each sample by n / (2 * n_class).
func balancedWeights(y []float64) ([]float64, error) {
	var pos int
	for _, v := range y {
		switch v {
		case 1:
			pos++
		case 0:
		default:
			return nil, fmt.Errorf("label %v is not 0 or 1", v)
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("training data needs both classes, got %d positive and %d negative", pos, neg)
	}

	n := float64(len(y))
	wPos, wNeg := n/(2*float64(pos)), n/(2*float64(neg))
	out := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
