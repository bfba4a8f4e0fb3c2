//go:build !linux

package rtpriority

import "errors"

func promote() error {
	return errors.New("rtpriority: no supported syscall on this platform")
}
