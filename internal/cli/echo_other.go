//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package cli

import "os"

func disableEcho(*os.File) (func(), error) {
	return nil, errNotTerminal
}
