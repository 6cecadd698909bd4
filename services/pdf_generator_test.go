package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions("/usr/bin/chromium")
	assert.Equal(t, "/usr/bin/chromium", opts.ChromePath)
	assert.Equal(t, "landscape", opts.PageOrientation)
	assert.Equal(t, 36, opts.MarginTop)

	w, h := opts.PaperSize()
	assert.Equal(t, 11.69, w)
	assert.Equal(t, 8.27, h)

	opts.PageOrientation = "portrait"
	opts.PageSize = "letter"
	w, h = opts.PaperSize()
	assert.Equal(t, 8.5, w)
	assert.Equal(t, 11.0, h)
}

func TestGeneratePDFSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	pdf, err := GeneratePDF(context.Background(), "<h1>Comparison</h1>", DefaultPDFOptions(chromePath))
	if err != nil && os.IsNotExist(err) {
		t.Skipf("Skipping: Chrome not found at %s", chromePath)
	}
	require.NoError(t, err)
	assert.Contains(t, string(pdf[:5]), "%PDF-")
}
