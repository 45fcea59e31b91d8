//go:build race

package cancel

import "golang.org/x/crypto/bcrypt"

func secretHashCost() int {
	// race builds run much slower, keep the suites inside their timeouts
	return bcrypt.MinCost
}
