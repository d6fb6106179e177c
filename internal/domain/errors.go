package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrNameTooLong      = errors.New("name too long")
	ErrInvalidNameChars = errors.New("name contains unsupported characters")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidStatus    = errors.New("invalid status")
)
