package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound      = errors.New("farmer has no score history")
	ErrInvalidLimit  = errors.New("invalid history limit")
	ErrInvalidRecord = errors.New("score record needs an id and a farmer id")
	ErrClosed        = errors.New("history store closed")
)
