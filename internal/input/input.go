package input

import "time"

// Key is one input symbol (a character key or a button mapped to one).
type Key rune

func (k Key) String() string {
	return string(rune(k))
}

// Source delivers at most one key per Poll. Poll waits up to timeout
// when nothing is pending.
type Source interface {
	Poll(timeout time.Duration) (Key, bool)
}

// Multi polls several sources in order and returns the first key found.
// Only the first source is given the timeout; the rest are checked
// without waiting so one iteration never blocks longer than timeout.
type Multi []Source

func (m Multi) Poll(timeout time.Duration) (Key, bool) {
	for i, src := range m {
		wait := time.Duration(0)
		if i == 0 {
			wait = timeout
		}
		if k, ok := src.Poll(wait); ok {
			return k, true
		}
	}
	return 0, false
}
