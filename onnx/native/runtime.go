// Package native binds BertClassifier to the ONNX Runtime shared library and
// the HuggingFace tokenizer. Both need cgo and their native libraries at
// build and run time.
package native

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"docvalidator/classifier"
	"docvalidator/onnx"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

type Config struct {
	ModelPath         string
	TokenizerPath     string
	SharedLibraryPath string
	MaxLength         int
	InputIDsName      string
	AttentionMaskName string
	TokenTypeIDsName  string
	OutputName        string
}

// Runtime owns the ONNX Runtime environment, the inference session and the
// tokenizer. Create it once at startup and Close it on shutdown.
type Runtime struct {
	*onnx.BertClassifier

	tokenizer *hfTokenizer
	session   *ortSession
	logger    *zap.Logger
}

func NewRuntime(cfg Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, p := range []string{cfg.ModelPath, cfg.TokenizerPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("required file not found: %w", err)
		}
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	tk, err := tokenizers.FromFile(cfg.TokenizerPath)
	if err != nil {
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	hf := &hfTokenizer{tk: tk}

	session, err := newOrtSession(cfg)
	if err != nil {
		_ = hf.Close()
		_ = ort.DestroyEnvironment()
		return nil, err
	}

	bert, err := onnx.NewBertClassifier(hf, session, cfg.MaxLength, logger)
	if err != nil {
		_ = session.Destroy()
		_ = hf.Close()
		_ = ort.DestroyEnvironment()
		return nil, err
	}

	logger.Info("model and tokenizer loaded",
		zap.String("model", cfg.ModelPath),
		zap.String("tokenizer", cfg.TokenizerPath),
		zap.Int("max_length", cfg.MaxLength))

	return &Runtime{
		BertClassifier: bert,
		tokenizer:      hf,
		session:        session,
		logger:         logger,
	}, nil
}

// Close releases the session, the tokenizer and the runtime environment.
// Failures are logged and returned joined; callers shutting down may ignore
// them.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.session.Destroy(); err != nil {
		errs = append(errs, fmt.Errorf("destroy session: %w", err))
	}
	if err := r.tokenizer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close tokenizer: %w", err))
	}
	if err := ort.DestroyEnvironment(); err != nil {
		errs = append(errs, fmt.Errorf("destroy environment: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("failed to release onnx resources", zap.Error(err))
	}
	return err
}

type hfTokenizer struct {
	tk *tokenizers.Tokenizer
}

func (h *hfTokenizer) Encode(text string) ([]uint32, error) {
	ids, _ := h.tk.Encode(text, true)
	if len(ids) == 0 {
		return nil, fmt.Errorf("tokenizer produced no ids")
	}
	return ids, nil
}

func (h *hfTokenizer) Close() error {
	return h.tk.Close()
}

type ortSession struct {
	session       *ort.DynamicAdvancedSession
	withTypeIDs   bool
	outputClasses int
}

func newOrtSession(cfg Config) (*ortSession, error) {
	inputs := []string{cfg.InputIDsName, cfg.AttentionMaskName}
	if cfg.TokenTypeIDsName != "" {
		inputs = append(inputs, cfg.TokenTypeIDsName)
	}
	s, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}
	return &ortSession{
		session:       s,
		withTypeIDs:   cfg.TokenTypeIDsName != "",
		outputClasses: classifier.NumClasses,
	}, nil
}

func (s *ortSession) Run(inputIDs, attentionMask []int64) ([]float32, error) {
	shape := ort.NewShape(1, int64(len(inputIDs)))

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	inputs := []ort.Value{idsTensor, maskTensor}
	if s.withTypeIDs {
		typeTensor, err := ort.NewTensor(shape, make([]int64, len(inputIDs)))
		if err != nil {
			return nil, fmt.Errorf("token_type_ids tensor: %w", err)
		}
		defer typeTensor.Destroy()
		inputs = append(inputs, typeTensor)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.outputClasses)))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, err
	}
	return slices.Clone(out.GetData()), nil
}

func (s *ortSession) Destroy() error {
	return s.session.Destroy()
}
