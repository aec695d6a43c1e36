// Package frames supplies the units the decoder inspects once per tick.
package frames

import (
	"context"
	"time"
)

type Kind int

const (
	// Image frames carry an encoded PNG or JPEG picture in Data.
	Image Kind = iota + 1
	// Text frames carry already-decoded scanner output, as produced by
	// keyboard-wedge scanners or typed by the operator.
	Text
)

type Frame struct {
	Kind      Kind
	Data      []byte
	Text      string
	Source    string
	Seq       uint64
	Timestamp time.Time
}

func NewTextFrame(text string) *Frame {
	return &Frame{Kind: Text, Text: text, Source: "text", Timestamp: time.Now()}
}

// Source yields frames on demand. Next returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}
