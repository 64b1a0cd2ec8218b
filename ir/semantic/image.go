package semantic

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
)

// MediaType guesses the content type of the encoded payload from its magic
// bytes. Raw sample data yields "".
func (i Image) MediaType() string {
	d := i.Data
	switch {
	case len(d) >= 8 && bytes.Equal(d[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case len(d) >= 3 && d[0] == 0xFF && d[1] == 0xD8 && d[2] == 0xFF:
		return "image/jpeg"
	case len(d) >= 6 && (string(d[:6]) == "GIF87a" || string(d[:6]) == "GIF89a"):
		return "image/gif"
	case len(d) >= 12 && string(d[:4]) == "RIFF" && string(d[8:12]) == "WEBP":
		return "image/webp"
	case len(d) >= 4 && (string(d[:4]) == "II*\x00" || string(d[:4]) == "MM\x00*"):
		return "image/tiff"
	case len(d) >= 2 && string(d[:2]) == "BM":
		return "image/bmp"
	}
	return ""
}

// Decode converts the image payload into a standard Go image.Image. Encoded
// payloads go through the registered image decoders; raw samples are
// interpreted from their length and colour space.
func (i Image) Decode() (image.Image, error) {
	if len(i.Data) == 0 {
		return nil, errors.New("image data is empty")
	}
	if i.Filter == "DCTDecode" {
		return jpeg.Decode(bytes.NewReader(i.Data))
	}
	if i.Filter == "JPXDecode" {
		return nil, errors.New("JPXDecode payloads are not supported")
	}
	if i.MediaType() != "" {
		img, _, err := image.Decode(bytes.NewReader(i.Data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", i.MediaType(), err)
		}
		return img, nil
	}

	pixelCount := i.Width * i.Height
	if pixelCount <= 0 {
		return nil, errors.New("invalid image dimensions")
	}
	rect := image.Rect(0, 0, i.Width, i.Height)
	switch len(i.Data) {
	case pixelCount * 4:
		if i.ColorSpace == "DeviceCMYK" {
			return &image.CMYK{Pix: i.Data, Stride: i.Width * 4, Rect: rect}, nil
		}
		return &image.NRGBA{Pix: i.Data, Stride: i.Width * 4, Rect: rect}, nil
	case pixelCount * 3:
		return &rgbImage{Pix: i.Data, Stride: i.Width * 3, Rect: rect}, nil
	case pixelCount:
		return &image.Gray{Pix: i.Data, Stride: i.Width, Rect: rect}, nil
	}
	return nil, fmt.Errorf("unsupported image format: %d bytes for %dx%d image", len(i.Data), i.Width, i.Height)
}

// PNG re-encodes the image as PNG.
func (i Image) PNG() ([]byte, error) {
	img, err := i.Decode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type rgbImage struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

func (p *rgbImage) ColorModel() color.Model { return color.RGBAModel }
func (p *rgbImage) Bounds() image.Rectangle { return p.Rect }
func (p *rgbImage) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: 255}
}
