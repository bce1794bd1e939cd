// Package manifest builds the file list handed to the packer.
//
// Every file under the source folder is listed relative to the folder's parent,
// with forward slashes and a fixed "../" ascent prefix matching the depth at which
// the packer runs below the staging root.
package manifest
