// Package prompt asks the operator for the source folder when none was given
// on the command line.
package prompt
