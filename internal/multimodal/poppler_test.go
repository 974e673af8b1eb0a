package multimodal_test

import (
	"context"
	"image/color"
	"os"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/multimodal"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers poppler and tesseract invocations without the binaries.
type fakeRunner struct {
	t        *testing.T
	calls    []call
	pdfinfo  string
	infoErr  error
	text     string
	pngPages [][]byte
	ocr      string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	switch name {
	case "pdfinfo":
		return []byte(f.pdfinfo), nil, f.infoErr
	case "pdftotext":
		return []byte(f.text), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i, p := range f.pngPages {
			require.NoError(f.t, os.WriteFile(prefix+"-"+strconv.Itoa(i+1)+".png", p, 0o600))
		}
		return nil, nil, nil
	case "tesseract":
		return []byte(f.ocr), nil, nil
	}
	return nil, []byte("unknown command"), errors.New("exit status 127")
}

func TestPoppler_PageCountFromPDFInfo(t *testing.T) {
	r := &fakeRunner{t: t, pdfinfo: "Producer: x\nPages:          12\nEncrypted: no\n"}
	p := multimodal.NewPoppler(r, config.ToolsConfig{})

	n, err := p.PageCount(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestPoppler_PageCountFallsBackToFormFeeds(t *testing.T) {
	r := &fakeRunner{t: t, infoErr: errors.New("missing"), text: "one\ftwo\fthree\f"}
	p := multimodal.NewPoppler(r, config.ToolsConfig{})

	n, err := p.PageCount(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPoppler_ExtractTextArgs(t *testing.T) {
	r := &fakeRunner{t: t, text: "hello"}
	p := multimodal.NewPoppler(r, config.ToolsConfig{PDFToText: "pdftotext"})

	text, err := p.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}, r.calls[0].args[:5])
	assert.Equal(t, "-", r.calls[0].args[len(r.calls[0].args)-1])
}

func TestPoppler_RenderPagesInOrder(t *testing.T) {
	p1 := pngBytes(t, 10, 10, color.NRGBA{R: 255, A: 255})
	p2 := pngBytes(t, 20, 20, color.NRGBA{G: 255, A: 255})
	r := &fakeRunner{t: t, pngPages: [][]byte{p1, p2}}
	p := multimodal.NewPoppler(r, config.ToolsConfig{})

	pages, err := p.RenderPages(context.Background(), []byte("%PDF"), 150)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, p1, pages[0])
	assert.Equal(t, p2, pages[1])
	assert.Equal(t, []string{"-r", "150", "-png"}, r.calls[0].args[:3])
}

func TestPoppler_RenderPagesNoOutput(t *testing.T) {
	r := &fakeRunner{t: t}
	p := multimodal.NewPoppler(r, config.ToolsConfig{})

	_, err := p.RenderPages(context.Background(), []byte("%PDF"), 200)
	assert.Error(t, err)
}

func TestTesseract_Recognize(t *testing.T) {
	r := &fakeRunner{t: t, ocr: "NOTA  FISCAL\r\nN 42\n"}
	ocr := multimodal.NewTesseract(r, config.ToolsConfig{})

	text, err := ocr.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "NOTA FISCAL\nN 42", text)
	assert.Equal(t, []string{"stdout", "-l", "por"}, r.calls[0].args[1:])
}
