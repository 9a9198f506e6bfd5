package audio

import (
	"os"
	"syscall"
)

// ProcessHealthCheck answers whether a process is still alive. The session
// controller polls this while recording to detect capture crashes; alternate
// platforms can plug in a different probe.
type ProcessHealthCheck interface {
	Alive(pid int) bool
}

// SignalProbe checks liveness by sending signal 0, which performs the kernel
// permission and existence checks without delivering anything.
type SignalProbe struct{}

func (SignalProbe) Alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
