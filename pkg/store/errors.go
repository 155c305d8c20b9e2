package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("node not found")
	ErrDanglingReference = errors.New("relationship references a missing node")
	ErrInvalidElement    = errors.New("invalid graph element")
)

// NotFoundError is returned when a lookup names a node that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DanglingReferenceError is returned by UpsertRelationship when an endpoint
// is missing and nodes are not created implicitly.
type DanglingReferenceError struct {
	Source  string
	Target  string
	Missing []string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf(
		"relationship %q -> %q references missing node(s): %s",
		e.Source, e.Target, strings.Join(e.Missing, ", "),
	)
}

func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}
