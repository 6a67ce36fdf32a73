package jobpool

import "fmt"

// PanicError is the isolated failure of a single job. It is produced by the
// worker that recovered the panic and is never returned to the submitter.
type PanicError struct {
	// WorkerID is the worker whose job panicked.
	WorkerID int

	// Value is the value passed to panic.
	Value interface{}

	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Textual reports whether the panic payload carries a message: a string,
// an error or a fmt.Stringer.
func (e *PanicError) Textual() bool {
	_, ok := e.message()
	return ok
}

// Message returns the textual payload, or an empty string for opaque ones.
func (e *PanicError) Message() string {
	msg, _ := e.message()
	return msg
}

func (e *PanicError) message() (string, bool) {
	switch v := e.Value.(type) {
	case string:
		return v, true
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

func (e *PanicError) Error() string {
	if msg, ok := e.message(); ok {
		return fmt.Sprintf("job panicked on worker %d: %s", e.WorkerID, msg)
	}
	return fmt.Sprintf("job panicked on worker %d with non-textual value of type %T", e.WorkerID, e.Value)
}

// Unwrap exposes the payload when the job panicked with an error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
