// Package cpuspec derives inference thread counts from the CPU topology.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
	Hybrid        bool // performance and efficiency cores mixed
}

// GetCPUSpec returns the detected CPU specification
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		Hybrid:        cpuid.CPU.Supports(cpuid.HYBRID_CPU),
	}
}

// GetOptimalThreadCount returns the recommended number of inference threads.
// Hyperthreads share execution units so physical cores are preferred; the
// result never exceeds the CPUs available to the process.
func (c CPUSpec) GetOptimalThreadCount() int {
	available := runtime.NumCPU()

	threads := c.PhysicalCores
	if threads <= 0 {
		threads = c.LogicalCores
	}
	if threads <= 0 {
		threads = available
	}
	return max(1, min(threads, available))
}

// ThreadCount resolves a configured thread count. Zero selects the optimal
// count for this machine; values above the CPU count are capped.
func ThreadCount(configured int) int {
	available := runtime.NumCPU()
	if configured <= 0 {
		return GetCPUSpec().GetOptimalThreadCount()
	}
	return min(configured, available)
}
