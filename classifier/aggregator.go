package classifier

import (
	"context"
	"fmt"
	"math"

	"docvalidator/chunking"

	"go.uber.org/zap"
)

// ChunkResult is reported to a ChunkObserver once per classified chunk.
type ChunkResult struct {
	Index      int
	Total      int
	Text       string
	Prediction Prediction
	Weight     float32
}

type ChunkObserver func(ChunkResult)

// Aggregator classifies documents longer than the model's sequence length by
// classifying word-bounded chunks and combining them with confidence
// weighting.
type Aggregator struct {
	classifier Classifier
	budget     int
	logger     *zap.Logger
}

func NewAggregator(c Classifier, budget int, logger *zap.Logger) (*Aggregator, error) {
	if c == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if budget <= 0 {
		return nil, fmt.Errorf("chunk budget must be positive, got %d", budget)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		classifier: c,
		budget:     budget,
		logger:     logger,
	}, nil
}

// PredictLongDocument splits text into chunks, classifies them in order and
// returns the confidence-weighted average.
//
// Each chunk's weight is its own top-class probability, so confident chunks
// dominate. This is a heuristic: an overconfident wrong chunk can outvote
// several mildly confident correct ones.
func (a *Aggregator) PredictLongDocument(ctx context.Context, text string, observers ...ChunkObserver) (Prediction, error) {
	text = Normalize(text)
	if text == "" {
		return Prediction{}, InputError("document is empty")
	}

	chunks := chunking.Split(text, a.budget)
	if len(chunks) == 0 {
		return Prediction{}, degenerateError("document produced no chunks")
	}

	a.logger.Debug("classifying long document",
		zap.Int("chars", len(text)),
		zap.Int("chunks", len(chunks)),
		zap.Int("budget", a.budget))

	results := make([]Prediction, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Prediction{}, ClassificationError("aborted", err)
		}

		p, err := a.classifier.Classify(ctx, chunk)
		if err != nil {
			a.logger.Error("chunk classification failed",
				zap.Int("chunk", i),
				zap.Error(err))
			return Prediction{}, ClassificationError(fmt.Sprintf("chunk %d", i), err)
		}

		a.logger.Debug("chunk classified",
			zap.Int("chunk", i),
			zap.String("text", chunk),
			zap.Int("class", p.Class),
			zap.Float32s("probabilities", p.Probabilities[:]))

		for _, observe := range observers {
			observe(ChunkResult{
				Index:      i,
				Total:      len(chunks),
				Text:       chunk,
				Prediction: p,
				Weight:     p.Confidence(),
			})
		}
		results = append(results, p)
	}

	return Aggregate(results)
}

// Aggregate combines chunk predictions by weighting each with its own
// confidence. The result does not depend on the order of preds. Ties between
// the averaged classes resolve to class 1.
func Aggregate(preds []Prediction) (Prediction, error) {
	if len(preds) == 0 {
		return Prediction{}, degenerateError("no chunk predictions")
	}

	var weighted [NumClasses]float64
	var total float64
	for _, p := range preds {
		w := float64(p.Confidence())
		total += w
		for c := range NumClasses {
			weighted[c] += float64(p.Probabilities[c]) * w
		}
	}
	// NaN or Inf probabilities make total non-finite and fail this check too.
	if !(total > 0) || math.IsInf(total, 0) {
		return Prediction{}, degenerateError(fmt.Sprintf("total confidence weight is %v", total))
	}

	var out Prediction
	for c := range NumClasses {
		out.Probabilities[c] = float32(weighted[c] / total)
	}
	if out.Probabilities[0] > out.Probabilities[1] {
		out.Class = 0
	} else {
		out.Class = 1
	}
	return out, nil
}
