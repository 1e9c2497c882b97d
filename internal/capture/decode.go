package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ErrDecodeFrame is returned when client frame data is not a decodable image.
var ErrDecodeFrame = errors.New("failed to decode frame")

// DecodeFrame decodes a base64 image, optionally wrapped in a data URL such as
// "data:image/jpeg;base64,...". The caller closes the returned Mat.
func DecodeFrame(data string) (*gocv.Mat, error) {
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecodeFrame)
	}

	buf, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFrame, err)
	}

	mat, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFrame, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: not an image", ErrDecodeFrame)
	}
	return &mat, nil
}

// EncodeFrame encodes mat as a base64 JPEG data URL.
func EncodeFrame(mat *gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
