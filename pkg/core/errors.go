package core

import "errors"

// Common errors.
var (
	ErrCapture          = errors.New("capture failed")
	ErrRecognition      = errors.New("recognition failed")
	ErrDeletion         = errors.New("deletion failed")
	ErrPermissionDenied = errors.New("camera permission not granted")
	ErrNoDevice         = errors.New("no capture device available")
	ErrTerminated       = errors.New("coordinator terminated")
)
