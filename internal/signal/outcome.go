package signal

// Outcome is the contract every signal collector returns: either a value or
// an explicit "unavailable" with a reason. Callers must handle the
// unavailable branch; it never means "zero risk".
type Outcome[T any] struct {
	value     T
	reason    string
	available bool
}

// Ok wraps a successfully collected signal.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, available: true}
}

// Unavailable marks a signal that could not be collected.
func Unavailable[T any](reason string) Outcome[T] {
	return Outcome[T]{reason: reason}
}

// Available reports whether the signal was collected.
func (o Outcome[T]) Available() bool { return o.available }

// Value returns the collected signal; ok is false when unavailable.
func (o Outcome[T]) Value() (T, bool) { return o.value, o.available }

// Reason explains an unavailable outcome. Empty when available.
func (o Outcome[T]) Reason() string { return o.reason }
