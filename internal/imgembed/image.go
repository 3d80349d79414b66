package imgembed

import (
	"encoding/base64"
	"encoding/hex"
)

// Image is a resolved, embeddable image payload. MIME is always detected
// from the bytes, never trusted from a file extension or HTTP header.
type Image struct {
	Data []byte
	MIME string
}

// DataURL encodes the image as a data: URL for HTML and Markdown output.
func (img *Image) DataURL() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// RTFHex encodes the raw bytes as the hex stream used inside a \pict group.
func (img *Image) RTFHex() string {
	return hex.EncodeToString(img.Data)
}

// RTFBlip returns the \pict format control word for this image. RTF can
// only represent PNG and JPEG natively; ok is false for everything else
// and callers must fall back to a hyperlink.
func (img *Image) RTFBlip() (string, bool) {
	switch img.MIME {
	case "image/png":
		return `\pngblip`, true
	case "image/jpeg":
		return `\jpegblip`, true
	}
	return "", false
}
