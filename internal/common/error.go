package common

import "fmt"

var (
	ErrAuthRequired           = fmt.Errorf("authentication required")
	ErrNotRegistered          = fmt.Errorf("user not registered for course")
	ErrCourseNotFoundError    = fmt.Errorf("course not found")
	ErrCheckHasAlreadyStarted = fmt.Errorf("check process has already started")
)
