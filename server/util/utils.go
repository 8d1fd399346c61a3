package util

import (
	"fmt"
	"io"
	"strconv"
)

/*
Small helpers shared across the server.
*/

////////////////////////////////////////////////////////////////////////////////

// HumanBytes formats a byte count for log output.
func HumanBytes(n uint64) string {
	suffix := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	i := 0
	for n >= 1024 && i < len(suffix)-1 {
		n /= 1024
		i++
	}
	return strconv.FormatUint(n, 10) + " " + suffix[i]
}

// CountingWriter counts the bytes written through it, so a streaming handler
// can report how much of a response actually went out.
type CountingWriter struct {
	w io.Writer
	n int64
}

// NewCountingWriter returns a CountingWriter wrapping w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		return n, fmt.Errorf("write failure: %w", err)
	}
	return n, nil
}

// Count returns the number of bytes written so far.
func (c *CountingWriter) Count() int64 {
	return c.n
}
