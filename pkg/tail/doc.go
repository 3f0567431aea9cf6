// Package tail returns the last lines of append-only service log files
// without loading large files into memory.
//
// Files smaller than WindowSize are read whole. Larger files are read from
// size-WindowSize to EOF; the first line of that window is discarded because
// it is almost always a fragment. Memory use is therefore bounded by
// WindowSize regardless of file size. Lines longer than WindowSize are not
// supported: log lines are assumed short.
//
// Tail soft-fails on a missing file by returning a single informational line,
// so callers polling a service that has not logged yet need no special case.
// Read is the strict variant returning ErrNotFound.
//
// Follow streams lines appended after it starts, using fsnotify.
package tail
