//go:build !race

package cancel

import "golang.org/x/crypto/bcrypt"

func secretHashCost() int {
	return bcrypt.DefaultCost
}
