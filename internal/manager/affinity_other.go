//go:build !linux

package manager

import "errors"

var errUnsupported = errors.New("thread placement not supported on this platform")

func setAffinity(cores []int) error {
	return errUnsupported
}

func setScheduling(class SchedClass, priority int) error {
	if class == ClassDefault {
		return nil
	}
	return errUnsupported
}

func currentThreadID() int64 {
	return 0
}
