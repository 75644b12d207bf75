package waitlist

import (
	"bytes"
	"image"
	"image/png"
)

// transparentPixel is the body of a successful image-beacon response.
var transparentPixel = encodePixel()

func encodePixel() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
