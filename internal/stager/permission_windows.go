//go:build windows

package stager

import (
	"errors"
	"io/fs"
	"syscall"
)

// errPrivilegeNotHeld is ERROR_PRIVILEGE_NOT_HELD, returned without SeCreateSymbolicLinkPrivilege.
const errPrivilegeNotHeld syscall.Errno = 1314

func isPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, errPrivilegeNotHeld)
}
