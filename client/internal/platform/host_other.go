//go:build !darwin && !windows

package platform

// Host returns the strategy of the running platform.
func Host() Strategy {
	return Compose("posix", ExecBit{}, DirectExec{})
}
