// Package colorcache picks a representative embed color for a badge image
// and memoizes the result per URL in persistent storage.
package colorcache

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode marks an image that could not be decoded. Callers substitute the
// fallback color instead of failing the render.
var ErrDecode = errors.New("colorcache: image decode failed")

const (
	// DefaultCropFraction keeps the central half of each dimension,
	// cutting off border artifacts common in badge art.
	DefaultCropFraction = 0.5

	quantShift = 4 // 16 levels per channel, 4096 buckets
	numBuckets = 1 << (3 * (8 - quantShift))

	// Buckets closer to the gray axis than this chroma are outliers
	// (near-black, near-white, near-gray) unless nothing else exists.
	minChroma = 28
)

// Extract returns the representative color of an image as 0xRRGGBB.
//
// The image is center-cropped, quantized into a coarse histogram, and the
// most heavily weighted vibrant bucket wins; weight favors both frequency
// and distance from the gray axis. The result is deterministic for
// identical input bytes.
func Extract(data []byte, cropFraction float64) (int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cropFraction <= 0 || cropFraction > 1 {
		cropFraction = DefaultCropFraction
	}

	b := img.Bounds()
	cw := int(float64(b.Dx()) * cropFraction)
	ch := int(float64(b.Dy()) * cropFraction)
	if cw < 1 {
		cw = b.Dx()
	}
	if ch < 1 {
		ch = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2

	var count [numBuckets]uint32
	var sumR, sumG, sumB [numBuckets]uint64

	for y := y0; y < y0+ch; y++ {
		for x := x0; x < x0+cw; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue // transparent badge padding
			}
			r8, g8, b8 := r>>8, g>>8, bl>>8
			idx := (r8>>quantShift)<<8 | (g8>>quantShift)<<4 | b8>>quantShift
			count[idx]++
			sumR[idx] += uint64(r8)
			sumG[idx] += uint64(g8)
			sumB[idx] += uint64(b8)
		}
	}

	best := -1
	var bestScore float64
	pick := func(requireVibrant bool) {
		for idx := 0; idx < numBuckets; idx++ {
			c := count[idx]
			if c == 0 {
				continue
			}
			r := sumR[idx] / uint64(c)
			g := sumG[idx] / uint64(c)
			bl := sumB[idx] / uint64(c)
			chroma := maxc(r, g, bl) - minc(r, g, bl)
			if requireVibrant && chroma < minChroma {
				continue
			}
			score := float64(c) * (1 + float64(chroma)/255)
			if score > bestScore {
				best, bestScore = idx, score
			}
		}
	}
	pick(true)
	if best < 0 {
		// Fully gray image: fall back to the dominant bucket.
		pick(false)
	}
	if best < 0 {
		return 0, fmt.Errorf("%w: no opaque pixels", ErrDecode)
	}

	c := uint64(count[best])
	r := sumR[best] / c
	g := sumG[best] / c
	bl := sumB[best] / c
	return int(r<<16 | g<<8 | bl), nil
}

func maxc(a, b, c uint64) uint64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minc(a, b, c uint64) uint64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
