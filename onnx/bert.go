package onnx

import (
	"context"
	"fmt"

	"docvalidator/classifier"

	"go.uber.org/zap"
)

// Tokenizer turns text into token ids, special tokens included.
type Tokenizer interface {
	Encode(text string) ([]uint32, error)
}

// Session runs one forward pass over a [1, maxLength] batch and returns the
// logits of the single row.
type Session interface {
	Run(inputIDs, attentionMask []int64) ([]float32, error)
}

// BertClassifier implements classifier.Classifier on top of a tokenizer and
// an inference session.
type BertClassifier struct {
	tokenizer Tokenizer
	session   Session
	maxLength int
	logger    *zap.Logger
}

func NewBertClassifier(tokenizer Tokenizer, session Session, maxLength int, logger *zap.Logger) (*BertClassifier, error) {
	if tokenizer == nil || session == nil {
		return nil, fmt.Errorf("tokenizer and session are required")
	}
	if maxLength <= 0 {
		return nil, fmt.Errorf("max length must be positive, got %d", maxLength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BertClassifier{
		tokenizer: tokenizer,
		session:   session,
		maxLength: maxLength,
		logger:    logger,
	}, nil
}

var _ classifier.Classifier = (*BertClassifier)(nil)

// Classify runs the model on a single piece of text. Anything beyond
// maxLength tokens is truncated.
func (b *BertClassifier) Classify(ctx context.Context, text string) (classifier.Prediction, error) {
	text = classifier.Normalize(text)
	if text == "" {
		return classifier.Prediction{}, classifier.InputError("text is empty")
	}
	if err := ctx.Err(); err != nil {
		return classifier.Prediction{}, classifier.ClassificationError("aborted", err)
	}

	ids, err := b.tokenizer.Encode(text)
	if err != nil {
		return classifier.Prediction{}, classifier.ClassificationError("tokenize", err)
	}
	if len(ids) > b.maxLength {
		b.logger.Debug("truncating tokens",
			zap.Int("tokens", len(ids)),
			zap.Int("max_length", b.maxLength))
	}

	inputIDs, mask := EncodeInputs(ids, b.maxLength)
	logits, err := b.session.Run(inputIDs, mask)
	if err != nil {
		return classifier.Prediction{}, classifier.ClassificationError("run model", err)
	}
	b.logger.Debug("logits", zap.Float32s("logits", logits))

	return classifier.FromLogits(logits)
}
