package tesseract

import (
	"context"
	"image"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/internal/common"
)

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(common.OCRConfig{})
	assert.Equal(t, "tesseract", e.Name())
	assert.Equal(t, []string{"eng"}, e.langs)
}

func TestRecognizeBlankPage(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}
	img := image.NewGray(image.Rect(0, 0, 200, 80))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	rec, err := NewEngine(common.OCRConfig{DPI: 300}).Recognize(context.Background(), img)
	require.NoError(t, err)
	assert.Empty(t, rec.Words)
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(common.OCRConfig{}).Recognize(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}
