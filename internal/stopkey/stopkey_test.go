package stopkey

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch_CancelsOnEnter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	Watch(ctx, pr, cancel)

	_, err := pw.Write([]byte("abc"))
	assert.NoError(t, err)
	select {
	case <-ctx.Done():
		t.Fatal("canceled before Enter")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = pw.Write([]byte("\n"))
	assert.NoError(t, err)
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Enter did not cancel")
	}
}

func TestWatch_CancelsOnEOF(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Watch(ctx, strings.NewReader("no newline"), cancel)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("end of input did not cancel")
	}
}
