//go:build !linux && !darwin && !windows

package utils

func setSocketBuffers(fd uintptr) {}
