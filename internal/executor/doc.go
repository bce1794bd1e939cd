// Package executor runs short command sequences in a command interpreter session.
//
// SystemShell spawns the platform interpreter with redirected standard streams and
// writes the lines to its input; VirtualShell interprets them in-process. Both
// return the combined output and report an error only when the interpreter itself
// cannot run.
package executor
