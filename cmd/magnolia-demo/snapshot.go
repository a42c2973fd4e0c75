package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// writeImage encodes img as BMP or PNG, chosen by the file extension.
func writeImage(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".bmp":
		return bmp.Encode(f, img)
	case ".png", "":
		return png.Encode(f, img)
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}
}

// offscreen is the surface of a headless run.
type offscreen struct{ width, height int }

func (s offscreen) Size() (int, int) { return s.width, s.height }
