package utils

import "errors"

var (
	// ErrorRecordNotFound is returned when a referenced bill, occurrence or
	// account is absent or tombstoned.
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorAlreadySettled is returned on a double-settlement attempt.
	ErrorAlreadySettled = errors.New("occurrence already settled")

	// ErrorInvalidState is returned when an operation is attempted against a
	// record whose lifecycle state forbids it (e.g. paying an occurrence of a
	// cancelled bill).
	ErrorInvalidState = errors.New("invalid state for operation")

	// ErrorConsistencyViolation marks data the generator guard should have made
	// impossible (duplicate occurrence for the same bill and due date). It is
	// surfaced loudly, never silently merged.
	ErrorConsistencyViolation = errors.New("consistency violation")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
