package experiment

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// StatusLog is a bounded text log with the newest line first. Once the
// text exceeds its limit, the oldest characters are dropped.
type StatusLog struct {
	mu    sync.Mutex
	limit int
	text  string
}

// NewStatusLog returns a new StatusLog holding at most limit bytes
func NewStatusLog(limit int) *StatusLog {
	return &StatusLog{limit: limit}
}

// Printf formats a line and prepends it to the log
func (s *StatusLog) Printf(format string, args ...interface{}) {
	s.Add(fmt.Sprintf(format, args...))
}

// Add prepends a line to the log
func (s *StatusLog) Add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := line + "\n" + s.text
	if len(text) > s.limit {
		// Cut on a rune boundary
		end := s.limit
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		text = text[:end]
	}
	s.text = text
}

// String returns the log text, newest line first
func (s *StatusLog) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.text
}

// Lines returns the complete lines of the log, newest first
func (s *StatusLog) Lines() []string {
	text := strings.TrimSuffix(s.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
