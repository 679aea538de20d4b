// Package thread implements per-thread state for lockset analysis.
//
// Context maintains, for each observed thread:
//   - the held lock set L(t), consulted on every shared access
//   - the call-frame sequence, kept only for race diagnostics
//
// Lock acquire and release are reported back to the caller (added / removed
// or not) so that the engine can apply its own policy for acquiring a lock
// twice or releasing a lock that is not held.
package thread
