// Package decoder extracts at most one payload string from a frame.
package decoder

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/eaglebank/scanpoint/scanner/internal/frames"
)

// Adapter decodes QR codes from image frames and passes text frames through.
// A miss is reported as ok=false, never as an error.
type Adapter struct {
	mu     sync.Mutex
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func New() *Adapter {
	return &Adapter{
		reader: zxqr.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// TryDecode makes a single decode attempt on frame.
func (a *Adapter) TryDecode(frame *frames.Frame) (string, bool) {
	if frame == nil {
		return "", false
	}
	switch frame.Kind {
	case frames.Text:
		text := strings.TrimSpace(frame.Text)
		return text, text != ""
	case frames.Image:
		return a.decodeImage(frame)
	default:
		return "", false
	}
}

func (a *Adapter) decodeImage(frame *frames.Frame) (string, bool) {
	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		slog.Debug("frame is not a decodable image", "source", frame.Source, "seq", frame.Seq, "error", err)
		return "", false
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}

	a.mu.Lock()
	result, err := a.reader.Decode(bmp, a.hints)
	a.reader.Reset()
	a.mu.Unlock()
	if err != nil {
		slog.Debug("no qr code in frame", "source", frame.Source, "seq", frame.Seq, "error", err)
		return "", false
	}

	text := result.GetText()
	if text == "" {
		return "", false
	}
	return text, true
}
