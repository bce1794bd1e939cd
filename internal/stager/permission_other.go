//go:build !windows

package stager

import (
	"errors"
	"io/fs"
)

func isPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
