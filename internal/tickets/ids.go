package tickets

import (
	"math/rand/v2"
	"strconv"
)

// Ticket identifiers span [MinID, MaxID].
const (
	MinID = 100000
	MaxID = 999999
)

// IDGenerator produces candidate ticket identifiers. Uniqueness is
// enforced by the store, not the generator.
type IDGenerator func() string

// RandomID draws a uniformly distributed candidate in [MinID, MaxID].
func RandomID() string {
	return strconv.Itoa(MinID + rand.IntN(MaxID-MinID+1))
}

// ValidID reports whether s is six ASCII digits in [MinID, MaxID].
func ValidID(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[0] != '0'
}
