package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// StdioConn is the editor connection of the language server: requests on
// stdin, responses on stdout. When a trace writer is set, every message in
// both directions is copied to it.
type StdioConn struct {
	r io.ReadCloser
	w io.WriteCloser

	mu    sync.Mutex
	trace io.Writer
}

// NewStdRWC connects to the editor over stdin and stdout
func NewStdRWC() *StdioConn {
	return NewRWC(os.Stdin, os.Stdout)
}

// NewRWC connects over r and w, used by tests to run the server over a pipe
func NewRWC(r io.ReadCloser, w io.WriteCloser) *StdioConn {
	return &StdioConn{r: r, w: w}
}

// WithTrace copies the protocol traffic to trace, each chunk prefixed with its direction
func (c *StdioConn) WithTrace(trace io.Writer) *StdioConn {
	c.trace = trace
	return c
}

func (c *StdioConn) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.traceChunk("<-", p[:n])
	return n, err
}

func (c *StdioConn) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.traceChunk("->", p[:n])
	return n, err
}

func (c *StdioConn) traceChunk(dir string, p []byte) {
	if c.trace == nil || len(p) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.trace, "%s %s\n", dir, p)
}

// Close closes both streams and returns the errors of either
func (c *StdioConn) Close() error {
	var errs []error
	if c.r != nil {
		errs = append(errs, c.r.Close())
	}
	if c.w != nil {
		errs = append(errs, c.w.Close())
	}
	return errors.Join(errs...)
}
