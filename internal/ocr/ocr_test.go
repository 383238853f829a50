package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
)

func newTestProcessor(enabled bool, threshold float64) *Processor {
	cfg := config.Load()
	cfg.OCREnabled = enabled
	cfg.ScannedTextThreshold = threshold
	return NewProcessor(cfg)
}

func TestIsScanned(t *testing.T) {
	p := newTestProcessor(true, 0.1) // cutoff: 10 chars/page

	tests := []struct {
		name      string
		textLen   int
		pageCount int
		want      bool
	}{
		{"sparse text is scanned", 50, 10, true},
		{"dense text is not scanned", 2000, 10, false},
		{"exactly at cutoff is not scanned", 100, 10, false},
		{"zero pages is never scanned", 0, 0, false},
		{"empty single page is scanned", 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.textLen)
			assert.Equal(t, tt.want, p.IsScanned("book.pdf", text, tt.pageCount))
		})
	}
}

func TestRecognizeDisabled(t *testing.T) {
	p := newTestProcessor(false, 0.1)

	text, err := p.Recognize("book.pdf", 1000)
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestEnabled(t *testing.T) {
	assert.True(t, newTestProcessor(true, 0.1).Enabled())
	assert.False(t, newTestProcessor(false, 0.1).Enabled())
}
