package vdom

import (
	"strconv"
	"strings"
)

// keyGen hands out node keys for one Runtime.
type keyGen struct {
	next int
}

// Next returns the next unused key.
func (g *keyGen) Next() string {
	n := g.next
	g.next++
	return numberToKey(n)
}

// numberToKey renders n in base 36, left-padded with 'a' to one more
// character than n has decimal digits. Numbers with different digit counts
// get keys of different lengths, so keys never collide.
func numberToKey(n int) string {
	if n < 0 {
		n = -n
	}
	width := len(strconv.Itoa(n)) + 1
	s := strconv.FormatInt(int64(n), 36)
	if len(s) < width {
		s = strings.Repeat("a", width-len(s)) + s
	}
	return s[:width]
}

// keySelector returns a selector matching the host element keyed key.
func keySelector(key string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return "[data-key=\"" + r.Replace(key) + "\"]"
}
