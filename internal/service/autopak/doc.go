// Package autopak runs one staged packaging job.
//
// A run validates the source folder, writes the manifest next to it, links the
// folder into the executable directory, invokes the packer and then removes the
// link and the manifest. A stale link from an interrupted run is reclaimed when no
// packer process is alive.
package autopak
