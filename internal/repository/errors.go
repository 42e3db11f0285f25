package repository

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrSeatUnderflow    = errors.New("registered seats below zero")
	ErrSerialization    = errors.New("transaction serialization failure")
)
