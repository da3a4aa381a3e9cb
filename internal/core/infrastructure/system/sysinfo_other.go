//go:build !linux

package system

func loadAverage() [3]float64 { return [3]float64{} }

func availableMemory() (uint64, bool) { return 0, false }
