//go:build linux

package manager

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

type schedParam struct {
	priority int32
}

func setAffinity(cores []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}

func setScheduling(class SchedClass, priority int) error {
	policy, ok := schedPolicy(class)
	if !ok {
		return nil
	}
	param := schedParam{priority: int32(priority)}
	_, _, errno := syscall.Syscall(syscall.SYS_SCHED_SETSCHEDULER, 0, uintptr(policy), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errno
	}
	return nil
}

func schedPolicy(class SchedClass) (int, bool) {
	switch class {
	case ClassFIFO:
		return unix.SCHED_FIFO, true
	case ClassRoundRobin:
		return unix.SCHED_RR, true
	default:
		return 0, false
	}
}

func currentThreadID() int64 {
	return int64(unix.Gettid())
}
