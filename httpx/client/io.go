package client

import (
	"errors"
	"io"
	"math"
)

// ErrBodyTooLarge is returned by ReadAllAndCloseLimit when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("httpx/client: response body too large")

// ReadAllAndCloseLimit reads at most limit bytes from body and always closes it.
// A negative limit is treated as 0.
func ReadAllAndCloseLimit(body io.ReadCloser, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	defer func() { _ = body.Close() }()
	if limit < 0 {
		limit = 0
	}
	n := limit
	if n < math.MaxInt64 {
		n++
	}
	b, err := io.ReadAll(io.LimitReader(body, n))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}
