// Package trace reads recorded event streams and replays them into a
// lockset engine.
//
// A trace is a text file: a version header followed by one event per line,
// in the order the events happened in the observed program.
//
//	lockset-trace v1.0.0
//	thread 1          # register thread 1
//	thread 2
//	mem 100           # register memory location 100
//	seed 100 1        # C(100) += L1
//	frame 2 7         # thread 2 enters frame 7
//	exit 2            # thread 2 leaves its innermost frame
//	acquire 1 1       # thread 1 acquires L1
//	write 100 1 10    # thread 1 writes 100 at marker 10
//	release 1 1
//	read 100 2 20     # thread 2 reads 100 at marker 20
//
// Parse builds a Trace, Validate checks it structurally without an engine,
// and Replay drives an engine.Engine with it.
package trace
