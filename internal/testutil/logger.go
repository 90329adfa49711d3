package testutil

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogBuffer captures JSON log lines written by a zerolog.Logger.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogger returns a debug-level logger writing into a new LogBuffer.
func NewLogger() (zerolog.Logger, *LogBuffer) {
	lb := &LogBuffer{}
	return zerolog.New(lb).Level(zerolog.DebugLevel), lb
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any captured line contains every fragment.
func (b *LogBuffer) Contains(fragments ...string) bool {
	for _, line := range strings.Split(b.String(), "\n") {
		ok := line != ""
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
