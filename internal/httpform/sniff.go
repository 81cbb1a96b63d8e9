package httpform

import (
	"bytes"
	"image"

	// Registered so image.DecodeConfig can probe the formats SEP clients
	// actually upload.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// sniffImage probes content with a magic-byte image-size check. It returns
// the detected format name ("png", "jpeg", "gif"), which doubles as the file
// extension and the "image/" MIME subtype.
func sniffImage(content []byte) (ext string, ok bool) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil || format == "" {
		return "", false
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", false
	}
	return format, true
}
