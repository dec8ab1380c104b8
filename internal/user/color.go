package user

import (
	"fmt"
	"math/rand/v2"
)

// RandomColor returns a random "#rrggbb" color.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
