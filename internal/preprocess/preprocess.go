// Package preprocess turns an uploaded photo into the classifier input tensor:
// RGB, short side resized to 256, center crop 224x224, normalized with the
// ImageNet channel statistics.
package preprocess

import (
	"bufio"
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/petalnet/petalnet-go/internal/errors"
)

// Tensor layouts
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

const (
	DefaultResize = 256
	DefaultCrop   = 224
	channels      = 3
)

var (
	// ImageNetMean and ImageNetStd are the per-channel RGB statistics the
	// classifier was trained with.
	ImageNetMean = [channels]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [channels]float32{0.229, 0.224, 0.225}
)

// Options controls the preprocessing pipeline.
type Options struct {
	Resize int    // target length of the short side
	Crop   int    // side of the center crop
	Layout string // nhwc or nchw
	Mean   [channels]float32
	Std    [channels]float32
}

// DefaultOptions returns the training-time pipeline in NHWC layout.
func DefaultOptions() Options {
	return Options{
		Resize: DefaultResize,
		Crop:   DefaultCrop,
		Layout: LayoutNHWC,
		Mean:   ImageNetMean,
		Std:    ImageNetStd,
	}
}

// TensorLen is the number of float32 values Prepare produces.
func (o Options) TensorLen() int {
	return o.Crop * o.Crop * channels
}

// Decode reads a PNG, JPEG or WEBP image. EXIF orientation is applied.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	header, _ := br.Peek(12)

	var (
		img image.Image
		err error
	)
	if isWebP(header) {
		img, err = webp.Decode(br)
	} else {
		img, err = imaging.Decode(br, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, errors.New(err).
			Component("preprocess").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return img, nil
}

func isWebP(header []byte) bool {
	return len(header) >= 12 &&
		bytes.Equal(header[0:4], []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WEBP"))
}

// Prepare decodes r and returns the normalized tensor.
func Prepare(r io.Reader, opts Options) ([]float32, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Tensor(img, opts), nil
}

// Tensor resizes, crops and normalizes img into a flat tensor of TensorLen values.
func Tensor(img image.Image, opts Options) []float32 {
	cropped := ResizeAndCrop(img, opts.Resize, opts.Crop)

	size := opts.Crop
	plane := size * size
	out := make([]float32, opts.TensorLen())

	for y := range size {
		row := cropped.Pix[y*cropped.Stride:]
		for x := range size {
			px := row[x*4 : x*4+channels]
			for c := range channels {
				v := (float32(px[c])/255 - opts.Mean[c]) / opts.Std[c]
				if opts.Layout == LayoutNCHW {
					out[c*plane+y*size+x] = v
				} else {
					out[(y*size+x)*channels+c] = v
				}
			}
		}
	}
	return out
}

// ResizeAndCrop scales the short side to resize, keeping the aspect ratio,
// then cuts the centered crop x crop square.
func ResizeAndCrop(img image.Image, resize, crop int) *image.NRGBA {
	b := img.Bounds()
	var resized *image.NRGBA
	if b.Dx() <= b.Dy() {
		resized = imaging.Resize(img, resize, 0, imaging.Linear)
	} else {
		resized = imaging.Resize(img, 0, resize, imaging.Linear)
	}
	return imaging.CropCenter(resized, crop, crop)
}
