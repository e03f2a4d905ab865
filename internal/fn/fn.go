package fn

// T is short for ternary
func T[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}

// RoundDown returns n truncated to a multiple of size.
func RoundDown(n, size int) int {
	return n / size * size
}

// RoundUp returns the smallest multiple of size that holds n.
func RoundUp(n, size int) int {
	return RoundDown(n+size-1, size)
}
