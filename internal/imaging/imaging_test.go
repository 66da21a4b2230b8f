package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func createTestGIF(w, h int) []byte {
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)
	return buf.Bytes()
}

func TestPreparePNGBecomesJPEG(t *testing.T) {
	up, err := Prepare(bytes.NewReader(createTestPNG(100, 80)), "wallet.png", 0)
	if err != nil {
		t.Fatalf("Prepare PNG: %v", err)
	}
	if up.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", up.MIME)
	}
	if up.Filename != "wallet.jpg" {
		t.Errorf("expected wallet.jpg, got %s", up.Filename)
	}
	if len(up.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestPrepareGIF(t *testing.T) {
	up, err := Prepare(bytes.NewReader(createTestGIF(40, 40)), "keys.gif", 0)
	if err != nil {
		t.Fatalf("Prepare GIF: %v", err)
	}
	if up.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", up.MIME)
	}
}

func TestPrepareDownscale(t *testing.T) {
	up, err := Prepare(bytes.NewReader(createTestJPEG(800, 400)), "big.jpg", 200)
	if err != nil {
		t.Fatalf("Prepare large image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("expected 200x100, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareSmallImageNotUpscaled(t *testing.T) {
	up, err := Prepare(bytes.NewReader(createTestJPEG(50, 50)), "small.jpg", 200)
	if err != nil {
		t.Fatalf("Prepare small image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("small image should not be resized: got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareRejectsNonImages(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("not an image")},
		{"empty", nil},
		{"pdf", []byte("%PDF-1.4\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(bytes.NewReader(tt.data), "x.bin", 0)
			if !errors.Is(err, ErrUnsupported) {
				t.Errorf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestJPEGName(t *testing.T) {
	tests := map[string]string{
		"photo.PNG":           "photo.jpg",
		`C:\Users\me\bag.gif`: "bag.jpg",
		"":                    "image.jpg",
		"../../etc/passwd":    "passwd.jpg",
	}
	for in, want := range tests {
		if got := jpegName(in); got != want {
			t.Errorf("jpegName(%q) = %q, want %q", in, got, want)
		}
	}
}
