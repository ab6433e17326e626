package rating

import "fmt"

// Label is the structured form of the rating string shown to readers.
type Label struct {
	Bucket    Bucket
	Clickbait Flag
	Score     *int
}

// String renders "{bucket}{clickbait}{ | AI: N%}".
func (l Label) String() string {
	s := l.Bucket.Label() + l.Clickbait.Suffix()
	if l.Score != nil {
		s += fmt.Sprintf(" | AI: %d%%", *l.Score)
	}
	return s
}
