package vcon

import "fmt"

// MalformedInputError means the whole file is unreadable or does not match
// the vCon container shape. It aborts the run.
type MalformedInputError struct {
	Path string
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed vcon input %q: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// MalformedRecordError means a single record is invalid. The record is
// skipped and counted; the run continues.
type MalformedRecordError struct {
	ID    string
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed record %s: field %q: %v", id, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record %s: missing or invalid field %q", id, e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// RecordError ties a per-record parse failure to its position in the file.
type RecordError struct {
	Index int
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }
