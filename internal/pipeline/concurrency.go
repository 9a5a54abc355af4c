package pipeline

import "runtime"

// ResolveConcurrency picks the worker-pool size: an explicit positive
// --concurrency/-C value wins, and the default (0) resolves to the CPU
// count (at least 1), whatever the number of sources.
func ResolveConcurrency(configured, numSources int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}
