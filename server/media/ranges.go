package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

/*
Range header handling. Mobile video players probe with HEAD and then issue
chunked range requests, and they are strict about the answers, so the grammar
below is deliberately exact: a malformed range expression is "range not
satisfiable" (416), never "no range" (200). Three forms are accepted:

	bytes=N-M   start N, end min(M, size-1)
	bytes=N-    start N, end size-1
	bytes=-N    the last N bytes

A parsed range is valid only if 0 <= start <= end < size.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrUnsatisfiableRange is returned for malformed or out-of-bounds ranges.
var ErrUnsatisfiableRange = errors.New("range not satisfiable")

// ByteRange is an inclusive byte span.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the span.
func (b ByteRange) Length() int64 {
	return b.End - b.Start + 1
}

// ContentRange renders the span as a Content-Range header value.
func (b ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.Start, b.End, size)
}

// ClampTo caps the span at ceiling bytes by lowering End. Clients are
// expected to issue follow-up range requests for subsequent chunks.
func (b ByteRange) ClampTo(ceiling int64) ByteRange {
	if ceiling <= 0 {
		return b
	}
	if max := b.Start + ceiling - 1; max < b.End {
		return ByteRange{Start: b.Start, End: max}
	}
	return b
}

// ParseRange turns a raw Range header value into a validated ByteRange
// against an object of the given size. A missing header returns (nil, nil),
// meaning the full object was requested.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, ErrUnsatisfiableRange
	}
	first, rest, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrUnsatisfiableRange
	}

	var start, end int64
	switch {
	case first == "":
		// suffix form: last N bytes
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, ErrUnsatisfiableRange
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	default:
		var err error
		start, err = strconv.ParseInt(first, 10, 64)
		if err != nil {
			return nil, ErrUnsatisfiableRange
		}
		if rest == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return nil, ErrUnsatisfiableRange
			}
			if end > size-1 {
				end = size - 1
			}
		}
	}

	if start < 0 || start >= size || end >= size || start > end {
		return nil, ErrUnsatisfiableRange
	}
	return &ByteRange{Start: start, End: end}, nil
}
