package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDeviceNotFound = errors.New("device not found")
	ErrAlreadyEntered = errors.New("device is already entered")
	ErrUploadFailed   = errors.New("photo upload failed")
	ErrStorage        = errors.New("storage failure")
)
