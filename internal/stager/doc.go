// Package stager creates and removes the temporary symbolic link that presents a
// source folder at the path the packer expects.
//
// NativeLinker uses direct filesystem calls. ShellLinker runs the platform link
// commands in a command interpreter session and detects inner failures from a
// status line appended to the session. Both refuse to remove anything that is not
// a symbolic link.
package stager
