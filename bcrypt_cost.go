//go:build !race

package access

// Cost 12 keeps offline brute force expensive while staying inside the
// request latency budget for login.
func passwordHashCost() int {
	return 12
}
