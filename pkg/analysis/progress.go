package analysis

import (
	"github.com/rs/zerolog"
)

// ProgressCallback reports progress while an image set is analyzed. It is
// called once per finished image, from whichever goroutine finished it, but
// never concurrently.
type ProgressCallback func(completed, total int, message string)

// LogProgress returns a callback that logs progress at info level.
func LogProgress(l zerolog.Logger) ProgressCallback {
	return func(completed, total int, message string) {
		percentage := 0.0
		if total > 0 {
			percentage = float64(completed) / float64(total) * 100
		}
		l.Info().
			Int("completed", completed).
			Int("total", total).
			Float64("percent", percentage).
			Msg(message)
	}
}
