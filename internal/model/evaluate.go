package model

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Confusion is a binary confusion matrix.
type Confusion struct {
	TrueNegative  int `json:"tn" yaml:"tn"`
	FalsePositive int `json:"fp" yaml:"fp"`
	FalseNegative int `json:"fn" yaml:"fn"`
	TruePositive  int `json:"tp" yaml:"tp"`
}

// Evaluation holds validation metrics of a scored dataset.
type Evaluation struct {
	Rows             int       `json:"rows"`
	ROCAUC           float64   `json:"roc_auc"`
	AveragePrecision float64   `json:"average_precision"`
	Threshold        float64   `json:"threshold"`
	Confusion        Confusion `json:"confusion"`
}

// Accuracy is the share of correctly classified rows.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TruePositive+c.TrueNegative, c.TruePositive+c.TrueNegative+c.FalsePositive+c.FalseNegative)
}

// Precision is tp / (tp + fp).
func (c Confusion) Precision() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalsePositive)
}

// Recall is tp / (tp + fn).
func (c Confusion) Recall() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalseNegative)
}

// F1 is the harmonic mean of precision and recall.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Evaluate scores probabilities against 0/1 labels. Both classes must be
// present.
func Evaluate(labels, scores []float64, threshold float64) (Evaluation, error) {
	if len(labels) != len(scores) {
		return Evaluation{}, fmt.Errorf("%d labels but %d scores", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return Evaluation{}, fmt.Errorf("cannot evaluate an empty dataset")
	}

	ev := Evaluation{Rows: len(labels), Threshold: threshold}
	for i, y := range labels {
		predicted := scores[i] >= threshold
		switch {
		case y == 1 && predicted:
			ev.Confusion.TruePositive++
		case y == 1:
			ev.Confusion.FalseNegative++
		case predicted:
			ev.Confusion.FalsePositive++
		default:
			ev.Confusion.TrueNegative++
		}
	}

	ev.ROCAUC = ROCAUC(labels, scores)
	if math.IsNaN(ev.ROCAUC) {
		return Evaluation{}, fmt.Errorf("ROC-AUC is undefined: evaluation data has a single class")
	}
	ev.AveragePrecision = AveragePrecision(labels, scores)
	return ev, nil
}

// ROCAUC is the area under the ROC curve, NaN when a class is missing.
func ROCAUC(labels, scores []float64) float64 {
	pos := int(floatsCount(labels, 1))
	if pos == 0 || pos == len(labels) {
		return math.NaN()
	}

	type pair struct {
		score float64
		class bool
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{score: scores[i], class: labels[i] == 1}
	}
	slices.SortStableFunc(pairs, func(a, b pair) int { return cmp.Compare(a.score, b.score) })

	y := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		y[i], classes[i] = p.score, p.class
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AveragePrecision is the step-wise area under the precision-recall curve:
// the sum over distinct thresholds of precision weighted by the recall gained.
func AveragePrecision(labels, scores []float64) float64 {
	pos := floatsCount(labels, 1)
	if pos == 0 {
		return 0
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })

	var tp, fp, ap, prevRecall float64
	for k, idx := range order {
		if labels[idx] == 1 {
			tp++
		} else {
			fp++
		}
		if k+1 < len(order) && scores[order[k+1]] == scores[idx] {
			continue
		}
		recall := tp / pos
		ap += (recall - prevRecall) * tp / (tp + fp)
		prevRecall = recall
	}
	return ap
}

func floatsCount(xs []float64, v float64) float64 {
	var n float64
	for _, x := range xs {
		if x == v {
			n++
		}
	}
	return n
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
