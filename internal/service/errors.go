package service

import "errors"

// Sentinel errors shared by the exam workflow services. Handlers map these
// onto stable response codes; they are never silently absorbed.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrAnswerFinalized = errors.New("answer already finalized")
	ErrExamInactive    = errors.New("exam is not active")
	ErrEmailTaken      = errors.New("email already registered")
)
