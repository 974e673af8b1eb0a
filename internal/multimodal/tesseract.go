package multimodal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
)

// Tesseract implements port.OCREngine with the tesseract executable.
type Tesseract struct {
	runner Runner
	binary string
	lang   string
}

// NewTesseract creates a Tesseract OCR engine.
func NewTesseract(runner Runner, tools config.ToolsConfig) *Tesseract {
	return &Tesseract{
		runner: runner,
		binary: orDefault(tools.Tesseract, "tesseract"),
		lang:   orDefault(tools.TesseractLang, "por"),
	}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	dir, err := os.MkdirTemp("", "fiscaldoc-ocr-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "page.img")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return "", errors.Wrap(err, "writing temp image")
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.binary, path, "stdout", "-l", t.lang)
	if err != nil {
		return "", errors.Wrapf(err, "tesseract: %s", truncate(string(errb), 512))
	}
	return NormalizeText(string(out)), nil
}
