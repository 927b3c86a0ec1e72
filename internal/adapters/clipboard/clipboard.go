// Package clipboard provides the write-only, best-effort clipboard sink.
package clipboard

import (
	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// Sink implements core.Clipboard on the system clipboard.
type Sink struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sink {
	return &Sink{log: log}
}

// Write copies text to the clipboard. Failures are reported but callers
// treat the sink as best effort.
func (s *Sink) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		s.log.Warn().Err(err).Str("module", "clipboard").Msg("clipboard write failed")
		return err
	}
	return nil
}
