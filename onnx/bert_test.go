package onnx

import (
	"context"
	"errors"
	"math"
	"testing"

	"docvalidator/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenizer struct {
	ids  []uint32
	err  error
	seen []string
}

func (f *fakeTokenizer) Encode(text string) ([]uint32, error) {
	f.seen = append(f.seen, text)
	return f.ids, f.err
}

type fakeSession struct {
	logits []float32
	err    error
	ids    []int64
	mask   []int64
}

func (f *fakeSession) Run(inputIDs, attentionMask []int64) ([]float32, error) {
	f.ids = inputIDs
	f.mask = attentionMask
	return f.logits, f.err
}

func TestBertClassifier_Classify(t *testing.T) {
	tk := &fakeTokenizer{ids: []uint32{101, 7592, 2088, 102}}
	sess := &fakeSession{logits: []float32{-1.5, 2.5}}
	bert, err := NewBertClassifier(tk, sess, 8, nil)
	require.NoError(t, err)

	p, err := bert.Classify(context.Background(), "  Hello WORLD ")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, tk.seen)
	assert.Equal(t, []int64{101, 7592, 2088, 102, 0, 0, 0, 0}, sess.ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0, 0, 0}, sess.mask)
	assert.Equal(t, 1, p.Class)
	assert.Greater(t, p.Probabilities[1], p.Probabilities[0])
}

func TestBertClassifier_Errors(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name string
		tk   *fakeTokenizer
		sess *fakeSession
		text string
		want error
	}{
		{"EmptyText", &fakeTokenizer{}, &fakeSession{}, "   ", classifier.ErrInput},
		{"TokenizerFails", &fakeTokenizer{err: boom}, &fakeSession{}, "text", classifier.ErrClassification},
		{"SessionFails", &fakeTokenizer{ids: []uint32{1}}, &fakeSession{err: boom}, "text", classifier.ErrClassification},
		{"BadLogits", &fakeTokenizer{ids: []uint32{1}}, &fakeSession{logits: []float32{1}}, "text", classifier.ErrClassification},
		{"NaNLogits", &fakeTokenizer{ids: []uint32{1}}, &fakeSession{logits: []float32{float32(math.NaN()), 0}}, "text", classifier.ErrClassification},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bert, err := NewBertClassifier(tc.tk, tc.sess, 4, nil)
			require.NoError(t, err)

			_, err = bert.Classify(context.Background(), tc.text)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBertClassifier_WithAggregator(t *testing.T) {
	tk := &fakeTokenizer{ids: []uint32{101, 102}}
	sess := &fakeSession{logits: []float32{3, 0}}
	bert, err := NewBertClassifier(tk, sess, 16, nil)
	require.NoError(t, err)

	agg, err := classifier.NewAggregator(bert, 12, nil)
	require.NoError(t, err)

	p, err := agg.PredictLongDocument(context.Background(), "Contrato de locação de imóvel residencial")
	require.NoError(t, err)

	assert.Len(t, tk.seen, 4)
	assert.Equal(t, 0, p.Class)
}

func TestEncodeInputs(t *testing.T) {
	testCases := []struct {
		name     string
		ids      []uint32
		max      int
		wantIDs  []int64
		wantMask []int64
	}{
		{"Pad", []uint32{5, 6}, 4, []int64{5, 6, 0, 0}, []int64{1, 1, 0, 0}},
		{"Truncate", []uint32{1, 2, 3, 4, 5}, 3, []int64{1, 2, 3}, []int64{1, 1, 1}},
		{"Exact", []uint32{7, 8}, 2, []int64{7, 8}, []int64{1, 1}},
		{"Empty", nil, 2, []int64{0, 0}, []int64{0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ids, mask := EncodeInputs(tc.ids, tc.max)
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, tc.wantMask, mask)
		})
	}
}
