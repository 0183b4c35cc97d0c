// Package routine provides panic-safe function and goroutine execution.
//
// It underpins the executors and the continuation machinery of this module:
// GoSafe/RunSafe keep user callbacks from crashing the process, and
// Recovered/RecoveredError turn recovered panics into errors carrying the
// panic-site stack trace.
package routine
