package entity

import "errors"

var (
	// ErrInvalidTransition is returned when a generation record is already terminal.
	ErrInvalidTransition = errors.New("generation record is already in a terminal state")
	// ErrAlreadyPublished is returned when a generation record already has a post.
	ErrAlreadyPublished = errors.New("generation already published")
	// ErrGenerationNotCompleted is returned when publishing a record that has no result yet.
	ErrGenerationNotCompleted = errors.New("generation not completed")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidPost            = errors.New("invalid post")
	ErrEmailTaken             = errors.New("email already registered")
	ErrUsernameTaken          = errors.New("username already taken")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUserDisabled           = errors.New("user is disabled")
)
