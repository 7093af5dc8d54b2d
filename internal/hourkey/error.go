package hourkey

import "fmt"

// Error attaches the offending hour to a per-hour failure.
type Error struct {
	Key Key
	Err error
}

// Wrap returns err annotated with the hour it belongs to.
func Wrap(k Key, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Key: k, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("hour %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
