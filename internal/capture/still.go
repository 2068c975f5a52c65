package capture

import (
	"fmt"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// LoadImage reads a still image as a BGR frame, applying its EXIF
// orientation. The caller must Close the returned Mat.
func LoadImage(path string) (gocv.Mat, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("open image %s: %w", path, err)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert image %s: %w", path, err)
	}
	return mat, nil
}
