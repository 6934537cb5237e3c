// Package nmsrc hands out fresh C identifiers for the locals of generated
// functions.
package nmsrc

import "strconv"

// Src counts per prefix. Copies share the same counters.
type Src struct {
	m map[string]int
}

func New() Src {
	return Src{
		m: make(map[string]int),
	}
}

// Name is prefix followed by the next count for that prefix. A prefix that
// ends in a digit gets an underscore first, so ("l1", 2) and ("l", 12)
// cannot collide.
func (s Src) Name(prefix string) string {
	i := s.m[prefix] + 1
	s.m[prefix] = i
	if n := len(prefix); n != 0 && '0' <= prefix[n-1] && prefix[n-1] <= '9' {
		prefix += "_"
	}
	return prefix + strconv.Itoa(i)
}
