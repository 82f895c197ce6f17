// Package mfx describes the contract of a hardware encode session: status
// codes, video parameters, frame surfaces and bitstream buffers, and the
// device/session/encoder interfaces a backend has to provide.
package mfx

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Status is a session status code. Negative values are errors, positive
// values are warnings and zero is success.
type Status int32

const (
	ErrNone Status = 0

	ErrUnknown                Status = -1
	ErrNullPtr                Status = -2
	ErrUnsupported            Status = -3
	ErrMemoryAlloc            Status = -4
	ErrNotEnoughBuffer        Status = -5
	ErrInvalidHandle          Status = -6
	ErrLockMemory             Status = -7
	ErrNotInitialized         Status = -8
	ErrNotFound               Status = -9
	ErrMoreData               Status = -10
	ErrMoreSurface            Status = -11
	ErrAborted                Status = -12
	ErrDeviceLost             Status = -13
	ErrIncompatibleVideoParam Status = -14
	ErrInvalidVideoParam      Status = -15
	ErrUndefinedBehavior      Status = -16
	ErrDeviceFailed           Status = -17

	WrnInExecution            Status = 1
	WrnDeviceBusy             Status = 2
	WrnValueNotChanged        Status = 3
	WrnPartialAcceleration    Status = 4
	WrnIncompatibleVideoParam Status = 5
)

var statusNames = map[Status]string{
	ErrNone:                   "MFX_ERR_NONE",
	ErrUnknown:                "MFX_ERR_UNKNOWN",
	ErrNullPtr:                "MFX_ERR_NULL_PTR",
	ErrUnsupported:            "MFX_ERR_UNSUPPORTED",
	ErrMemoryAlloc:            "MFX_ERR_MEMORY_ALLOC",
	ErrNotEnoughBuffer:        "MFX_ERR_NOT_ENOUGH_BUFFER",
	ErrInvalidHandle:          "MFX_ERR_INVALID_HANDLE",
	ErrLockMemory:             "MFX_ERR_LOCK_MEMORY",
	ErrNotInitialized:         "MFX_ERR_NOT_INITIALIZED",
	ErrNotFound:               "MFX_ERR_NOT_FOUND",
	ErrMoreData:               "MFX_ERR_MORE_DATA",
	ErrMoreSurface:            "MFX_ERR_MORE_SURFACE",
	ErrAborted:                "MFX_ERR_ABORTED",
	ErrDeviceLost:             "MFX_ERR_DEVICE_LOST",
	ErrIncompatibleVideoParam: "MFX_ERR_INCOMPATIBLE_VIDEO_PARAM",
	ErrInvalidVideoParam:      "MFX_ERR_INVALID_VIDEO_PARAM",
	ErrUndefinedBehavior:      "MFX_ERR_UNDEFINED_BEHAVIOR",
	ErrDeviceFailed:           "MFX_ERR_DEVICE_FAILED",
	WrnInExecution:            "MFX_WRN_IN_EXECUTION",
	WrnDeviceBusy:             "MFX_WRN_DEVICE_BUSY",
	WrnValueNotChanged:        "MFX_WRN_VALUE_NOT_CHANGED",
	WrnPartialAcceleration:    "MFX_WRN_PARTIAL_ACCELERATION",
	WrnIncompatibleVideoParam: "MFX_WRN_INCOMPATIBLE_VIDEO_PARAM",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MFX_STATUS(%d)", int32(s))
}

// IsError reports whether s is a negative status.
func (s Status) IsError() bool { return s < ErrNone }

// IsWarning reports whether s is a positive status.
func (s Status) IsWarning() bool { return s > ErrNone }

// StatusError wraps a negative status as a Go error.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	if e.Op == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Err returns nil for success and warnings, and a *StatusError otherwise.
func (s Status) Err(op string) error {
	if !s.IsError() {
		return nil
	}
	return errors.WithStack(&StatusError{Op: op, Status: s})
}

// StatusOf extracts the status carried by err, or ErrUnknown.
func StatusOf(err error) Status {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return ErrUnknown
}
