package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// WriterDispatcher emits one compact JSON line per sample to an
// io.Writer. The default sink is stdout.
type WriterDispatcher struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterDispatcher creates a dispatcher writing to out, or stdout
// when out is nil.
func NewWriterDispatcher(out io.Writer) *WriterDispatcher {
	if out == nil {
		out = os.Stdout
	}
	return &WriterDispatcher{out: out}
}

// Dispatch writes the sample as a single JSON line.
func (d *WriterDispatcher) Dispatch(_ context.Context, s *Sample) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := json.NewEncoder(d.out).Encode(s); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}
