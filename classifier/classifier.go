package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// NumClasses is fixed: the model is a binary document validator.
const NumClasses = 2

// Prediction is the class and probability vector for a chunk or a whole
// document.
type Prediction struct {
	Class         int                 `json:"class"`
	Probabilities [NumClasses]float32 `json:"probabilities"`
}

// Confidence is the probability of the top class.
func (p Prediction) Confidence() float32 {
	return max(p.Probabilities[0], p.Probabilities[1])
}

// Classifier maps one normalized chunk of text to a Prediction.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// Normalize lowercases and trims text the same way for whole documents and
// for individual chunks.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

// FromLogits turns raw model output into a Prediction. The class is the
// index of the first maximum logit. Non-finite logits are rejected.
func FromLogits(logits []float32) (Prediction, error) {
	if len(logits) != NumClasses {
		return Prediction{}, ClassificationError(fmt.Sprintf("expected %d logits, got %d", NumClasses, len(logits)), nil)
	}
	for i, l := range logits {
		if !isFinite(l) {
			return Prediction{}, ClassificationError(fmt.Sprintf("logit %d is not finite: %v", i, l), nil)
		}
	}
	probs := Softmax(logits)
	var p Prediction
	copy(p.Probabilities[:], probs)
	p.Class = ArgMax(logits)
	return p, nil
}

// Softmax is numerically stable: logits are shifted by their maximum.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	m := logits[0]
	for _, l := range logits[1:] {
		if l > m {
			m = l
		}
	}
	out := make([]float32, len(logits))
	var sum float32
	for i, l := range logits {
		out[i] = float32(math.Exp(float64(l - m)))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func isFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func ArgMax(values []float32) int {
	idx := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[idx] {
			idx = i
		}
	}
	return idx
}
