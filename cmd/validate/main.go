package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"docvalidator/classifier"
	"docvalidator/config"
	"docvalidator/extract"
	"docvalidator/onnx/native"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath  string
		filePath    string
		contentType string
		single      bool
		verbose     bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")
	flag.StringVar(&filePath, "file", "", "Document to classify (defaults to stdin)")
	flag.StringVar(&contentType, "content-type", extract.ContentTypeText, "Document content type (text/plain or text/html)")
	flag.BoolVar(&single, "single", false, "Classify as a single chunk, truncating at the model max length")
	flag.BoolVar(&verbose, "verbose", false, "Print every chunk with its prediction")
	flag.Parse()

	if err := run(configPath, filePath, contentType, single, verbose); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(configPath, filePath, contentType string, single, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Yellow("invalid config: %v", e)
		}
		return fmt.Errorf("config has %d errors", len(errs))
	}

	raw, err := readInput(filePath)
	if err != nil {
		return err
	}
	text, err := extract.Text(contentType, string(raw))
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()
	}

	spinner := getSpinner(" Loading model...")
	runtime, err := native.NewRuntime(native.Config{
		ModelPath:         cfg.Model.Path,
		TokenizerPath:     cfg.Model.TokenizerPath,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		MaxLength:         cfg.Model.MaxLength,
		InputIDsName:      cfg.Model.InputIDsName,
		AttentionMaskName: cfg.Model.AttentionMaskName,
		TokenTypeIDsName:  cfg.Model.TokenTypeIDsName,
		OutputName:        cfg.Model.OutputName,
	}, logger)
	spinner.Finish()
	if err != nil {
		return err
	}
	defer runtime.Close()

	ctx := context.Background()

	if single {
		p, err := runtime.Classify(ctx, text)
		if err != nil {
			return err
		}
		printPrediction(p)
		return nil
	}

	aggregator, err := classifier.NewAggregator(runtime, cfg.ChunkBudget(), logger)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	chunkLine := color.New(color.FgHiBlack).PrintfFunc()
	p, err := aggregator.PredictLongDocument(ctx, text, func(r classifier.ChunkResult) {
		if bar == nil {
			bar = getProgressBar(r.Total, " Classifying chunks")
		}
		if verbose {
			bar.Clear()
			chunkLine("\n[%d/%d] class=%d p=%v %q\n", r.Index+1, r.Total,
				r.Prediction.Class, r.Prediction.Probabilities, r.Text)
		}
		bar.Add(1)
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Println()
	printPrediction(p)
	return nil
}

func readInput(filePath string) ([]byte, error) {
	if filePath == "" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return data, nil
}

func printPrediction(p classifier.Prediction) {
	verdict := color.New(color.FgGreen, color.Bold).PrintfFunc()
	if p.Class == 1 {
		verdict = color.New(color.FgYellow, color.Bold).PrintfFunc()
	}
	verdict("Predicted class: %d\n", p.Class)
	color.Cyan("Probabilities: [%.4f, %.4f]", p.Probabilities[0], p.Probabilities[1])
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
