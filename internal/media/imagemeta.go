package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// ErrNotAnImage is returned by Dimensions when r does not contain a decodable raster image.
var ErrNotAnImage = errors.New("file is not a decodable image")

// Dimensions decodes r as an image and reports its width and height. Decoding the full image (rather than reading
// just the header) doubles as validation that the upload is genuinely the raster format its declared content type
// claims, not just a file with a misleading extension.
func Dimensions(r io.Reader) (width, height int, err error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrNotAnImage, err)
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
