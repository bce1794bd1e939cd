// Package packer invokes the external content packer as a direct subprocess.
package packer
