// Package stopkey turns an Enter key press into a context cancellation.
package stopkey

import (
	"bufio"
	"context"
	"io"
)

// Watch reads r in a new goroutine and calls cancel on the first newline
// or when r reaches end of input. It returns once the goroutine is
// started; the goroutine exits after cancel or, if ctx ends first, on the
// next read from r.
func Watch(ctx context.Context, r io.Reader, cancel context.CancelFunc) {
	go func() {
		reader := bufio.NewReader(r)
		for {
			b, err := reader.ReadByte()
			if ctx.Err() != nil {
				return
			}
			if err != nil || b == '\n' {
				cancel()
				return
			}
		}
	}()
}
