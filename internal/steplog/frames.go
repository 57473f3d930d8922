package steplog

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

func writeImage(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeColor(path string, img *image.RGBA) error {
	return writeImage(path, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: constants.JPEGQuality})
	})
}

// DepthImage scales meters by scale into a 16-bit single channel image.
// Values are truncated and saturate at the 16-bit range; NaN becomes 0.
func DepthImage(d *sim.DepthFrame, scale float64) (*image.Gray16, error) {
	if len(d.Meters) != d.Width*d.Height {
		return nil, fmt.Errorf("depth frame has %d samples for %dx%d", len(d.Meters), d.Width, d.Height)
	}
	img := image.NewGray16(image.Rect(0, 0, d.Width, d.Height))
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			v := float64(d.Meters[y*d.Width+x]) * scale
			var u uint16
			switch {
			case math.IsNaN(v) || v <= 0:
				u = 0
			case v >= math.MaxUint16:
				u = math.MaxUint16
			default:
				u = uint16(v)
			}
			img.SetGray16(x, y, color.Gray16{Y: u})
		}
	}
	return img, nil
}

func writeDepth(path string, d *sim.DepthFrame, scale float64) error {
	img, err := DepthImage(d, scale)
	if err != nil {
		return err
	}
	return writeImage(path, func(w io.Writer) error { return png.Encode(w, img) })
}

// SemanticImage stores labels in a 16-bit single channel image. Labels
// above 65535 saturate; the second result counts the saturated pixels.
func SemanticImage(s *sim.SemanticFrame) (*image.Gray16, int, error) {
	if len(s.Labels) != s.Width*s.Height {
		return nil, 0, fmt.Errorf("semantic frame has %d labels for %dx%d", len(s.Labels), s.Width, s.Height)
	}
	img := image.NewGray16(image.Rect(0, 0, s.Width, s.Height))
	clipped := 0
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			l := s.Labels[y*s.Width+x]
			if l > math.MaxUint16 {
				l = math.MaxUint16
				clipped++
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(l)})
		}
	}
	return img, clipped, nil
}

func writeSemantic(path string, s *sim.SemanticFrame) (int, error) {
	img, clipped, err := SemanticImage(s)
	if err != nil {
		return 0, err
	}
	return clipped, writeImage(path, func(w io.Writer) error { return png.Encode(w, img) })
}
