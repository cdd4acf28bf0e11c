package ocr

import (
	"context"
	"image"

	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Word is one recognized word in image pixel space.
type Word struct {
	Text       string
	Box        entity.BBox
	Confidence float64 // 0..1
}

// Recognition is the raw result of one engine call.
type Recognition struct {
	Words []Word
	// Ordered is set when the engine already emits words in reading order.
	Ordered bool
	// OrientationKnown is set when the engine detected the page orientation itself.
	// Rotation is then the counter-clockwise correction in degrees (0, 90, 180, 270).
	OrientationKnown bool
	Rotation         int
}

// Engine recognizes printed text on a page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Recognition, error)
}

// recognize bounds an engine call by ctx. Engines that ignore ctx are left
// running in their goroutine once the deadline passes.
func recognize(ctx context.Context, eng Engine, img image.Image) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	type result struct {
		rec Recognition
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := eng.Recognize(ctx, img)
		done <- result{rec: rec, err: err}
	}()
	select {
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	case r := <-done:
		return r.rec, r.err
	}
}
