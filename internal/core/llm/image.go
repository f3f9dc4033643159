package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/receiptradar/constants"
)

// ErrImageTooLarge is returned for files above constants.MaxVisionMB.
var ErrImageTooLarge = errors.New("image exceeds vision size limit")

// Image is a receipt image ready to attach to a model request.
type Image struct {
	Path string
	MIME string
	Data []byte
}

// Format is the bare subtype, e.g. "png", as genai.ImageData expects.
func (i Image) Format() string {
	switch i.MIME {
	case "image/jpeg":
		return "jpeg"
	case "image/tiff":
		return "tiff"
	default:
		return "png"
	}
}

// DataURL encodes the image for OpenAI-style image_url parts.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// LoadImage reads an image file, rejecting non-image extensions and oversize files.
func LoadImage(path string) (Image, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if constants.MapExtToFormat(ext) != constants.FormatImage {
		return Image{}, fmt.Errorf("not an image: %s", path)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Image{}, err
	}
	if st.Size() > int64(constants.MaxVisionMB)*1024*1024 {
		return Image{}, fmt.Errorf("%s: %w", path, ErrImageTooLarge)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "tif", "tiff":
			mt = "image/tiff"
		default:
			mt = "image/png"
		}
	}
	return Image{Path: path, MIME: mt, Data: b}, nil
}
