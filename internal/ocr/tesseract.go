package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/receiptshield/analyzer/internal/entity"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	EnableTSVConfidence bool

	PSM int // e.g. 6 is good for a uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Recognizer shells out to tesseract to turn a receipt image into raw text
// plus a confidence score. Implements extract.TextRecognizer.
type Recognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRecognizer(cfg Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Recognizer{cfg: cfg, runner: execRunner{log: logger}, logger: logger}
}

// RecognizeText runs OCR on one image. Confidence blends tesseract's mean
// word confidence (when TSV mode is enabled) with a receipt-artifact
// heuristic, weighting the OCR figure higher when present.
func (r *Recognizer) RecognizeText(ctx context.Context, imagePath string) (entity.RecognitionResult, error) {
	start := time.Now()
	r.logger.Debug("ocr.recognize.start", "path", imagePath, "lang", r.cfg.TesseractLang)

	txt, warnings, err := r.tesseractOCR(ctx, imagePath)
	if err != nil {
		return entity.RecognitionResult{
			Warnings:         warnings,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, err
	}
	txt = Normalize(txt)

	var ocrConf float64
	if r.cfg.EnableTSVConfidence {
		c, w, err2 := r.tesseractTSVConfidence(ctx, imagePath)
		if err2 != nil {
			warnings = append(warnings, err2.Error())
		} else {
			ocrConf = c
			warnings = append(warnings, w...)
		}
	}
	heurConf := heuristicConfidence(txt)

	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	res := entity.RecognitionResult{
		Text:             txt,
		Confidence:       conf,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Warnings:         warnings,
	}
	r.logger.Info("ocr.recognize.ok",
		"path", imagePath,
		"bytes", len(txt),
		"confidence", conf,
		"elapsed_ms", res.ProcessingTimeMs,
	)
	return res, nil
}

func (r *Recognizer) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", r.cfg.TesseractLang}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}

	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word
// confidence in 0..1.
func (r *Recognizer) tesseractTSVConfidence(ctx context.Context, path string) (float64, []string, error) {
	args := []string{path, "stdout", "-l", r.cfg.TesseractLang}
	if r.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.cfg.PSM))
	}
	if r.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(r.cfg.OEM))
	}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	// conf column is the last; header line includes "conf"
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-1]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil, nil
	}
	return (sum / n) / 100.0, nil, nil
}
