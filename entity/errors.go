package entity

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrSlotsFull    = errors.New("all slots are full for this date")
	ErrInvalidInput = errors.New("invalid input")
	ErrPastDate     = errors.New("date is before the current week")
	ErrConflict     = errors.New("time overlaps an existing appointment")
)
