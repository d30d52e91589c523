package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRuntime_MissingFiles(t *testing.T) {
	testCases := []struct {
		name      string
		model     string
		tokenizer string
	}{
		{"BothMissing", "testdata/missing.onnx", "testdata/missing.json"},
		{"EmptyPaths", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRuntime(Config{
				ModelPath:     tc.model,
				TokenizerPath: tc.tokenizer,
				MaxLength:     128,
			}, nil)
			assert.ErrorContains(t, err, "required file not found")
		})
	}
}
