package pca

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"runtime"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var ErrDecode = errors.New("pca: unsupported or corrupt image")

// Shape is the size every image is scaled to before projection.
type Shape struct {
	Width  int
	Height int
}

// DefaultShape matches the cover size the dataset was prepared for.
var DefaultShape = Shape{Width: 200, Height: 300}

// Len is the number of pixels in the shape.
func (s Shape) Len() int { return s.Width * s.Height }

// Decode reads a jpeg, png, gif or webp image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Pixels scales img to shape over a white background and returns its luma
// values flattened column by column.
func Pixels(img image.Image, shape Shape) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([]float32, 0, shape.Len())
	for x := range shape.Width {
		for y := range shape.Height {
			c := dst.RGBAAt(x, y)
			out = append(out, float32(0.0722*float64(c.R)+0.7152*float64(c.G)+0.2126*float64(c.B)))
		}
	}
	return out
}

// Load decodes r and returns its pixel vector.
func Load(r io.Reader, shape Shape) ([]float32, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Pixels(img, shape), nil
}

// LoadFiles loads the named images concurrently. Files that do not exist
// produce a nil entry. Files that cannot be decoded produce a nil entry and
// an ErrDecode error in skipped, in name order. Any other failure aborts the
// load.
func LoadFiles(ctx context.Context, fsys fs.FS, names []string, shape Shape) (pixels [][]float32, skipped []error, err error) {
	out := make([][]float32, len(names))
	decodeErrs := make([]error, len(names))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range names {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			f, err := fsys.Open(name)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			defer f.Close()

			px, err := Load(f, shape)
			if errors.Is(err, ErrDecode) {
				decodeErrs[i] = fmt.Errorf("%s: %w", name, err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			out[i] = px
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	for _, e := range decodeErrs {
		if e != nil {
			skipped = append(skipped, e)
		}
	}
	return out, skipped, nil
}
