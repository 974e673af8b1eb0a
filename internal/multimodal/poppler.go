package multimodal

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
)

// Poppler implements port.PDFToolkit with the poppler-utils executables.
type Poppler struct {
	runner    Runner
	pdfToText string
	pdfToPPM  string
	pdfInfo   string
}

// NewPoppler creates a Poppler toolkit using the configured binary paths.
func NewPoppler(runner Runner, tools config.ToolsConfig) *Poppler {
	return &Poppler{
		runner:    runner,
		pdfToText: orDefault(tools.PDFToText, "pdftotext"),
		pdfToPPM:  orDefault(tools.PDFToPPM, "pdftoppm"),
		pdfInfo:   orDefault(tools.PDFInfo, "pdfinfo"),
	}
}

// PageCount reads "Pages:" from pdfinfo, falling back to counting the
// form feeds pdftotext emits between pages.
func (p *Poppler) PageCount(ctx context.Context, pdf []byte) (int, error) {
	return p.withTempPDF(pdf, func(path string) (int, error) {
		out, _, err := p.runner.Run(ctx, p.pdfInfo, path)
		if err == nil {
			if n := parsePDFInfoPages(out); n > 0 {
				return n, nil
			}
		}
		text, err := p.extractText(ctx, path)
		if err != nil {
			return 0, err
		}
		return countPages(text), nil
	})
}

// ExtractText returns the layout-preserving text layer of the PDF.
func (p *Poppler) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	var text string
	_, err := p.withTempPDF(pdf, func(path string) (int, error) {
		var err error
		text, err = p.extractText(ctx, path)
		return 0, err
	})
	return text, err
}

func (p *Poppler) extractText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.pdfToText, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", errors.Wrapf(err, "pdftotext: %s", truncate(string(errb), 512))
	}
	return string(out), nil
}

// RenderPages rasterizes every page to PNG at the given DPI, in page order.
func (p *Poppler) RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	var pages [][]byte
	_, err := p.withTempPDF(pdf, func(path string) (int, error) {
		prefix := filepath.Join(filepath.Dir(path), "page")
		// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
		_, errb, err := p.runner.Run(ctx, p.pdfToPPM, "-r", strconv.Itoa(dpi), "-png", path, prefix)
		if err != nil {
			return 0, errors.Wrapf(err, "pdftoppm: %s", truncate(string(errb), 512))
		}

		matches, _ := filepath.Glob(prefix + "-*.png")
		sortPageFiles(matches)
		if len(matches) == 0 {
			return 0, errors.New("pdftoppm produced no images")
		}
		for _, m := range matches {
			b, err := os.ReadFile(m)
			if err != nil {
				return 0, errors.Wrapf(err, "reading rendered page %s", filepath.Base(m))
			}
			pages = append(pages, b)
		}
		return len(pages), nil
	})
	return pages, err
}

func (p *Poppler) withTempPDF(pdf []byte, fn func(path string) (int, error)) (int, error) {
	dir, err := os.MkdirTemp("", "fiscaldoc-pdf-*")
	if err != nil {
		return 0, errors.Wrap(err, "creating temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, pdf, 0o600); err != nil {
		return 0, errors.Wrap(err, "writing temp pdf")
	}
	return fn(path)
}

func parsePDFInfoPages(out []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err == nil {
			return n
		}
	}
	return 0
}

// countPages counts pages in pdftotext output, where \f terminates each page.
func countPages(text string) int {
	n := strings.Count(text, "\f")
	if !strings.HasSuffix(strings.TrimRight(text, "\n"), "\f") {
		n++
	}
	return n
}

// sortPageFiles orders page-N.png files numerically; pdftoppm zero-pads
// inconsistently across versions.
func sortPageFiles(files []string) {
	num := func(f string) int {
		base := strings.TrimSuffix(filepath.Base(f), ".png")
		i := strings.LastIndexByte(base, '-')
		n, _ := strconv.Atoi(base[i+1:])
		return n
	}
	sort.SliceStable(files, func(i, j int) bool { return num(files[i]) < num(files[j]) })
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
