//go:build !linux

package tundev

import (
	"fmt"
	"runtime"
)

// New fails on platforms water's TUN backend does not target in this
// build; the core itself stays platform-independent.
func New(name string) (Device, error) {
	return nil, fmt.Errorf("tundev: TUN devices not supported on %s in this build", runtime.GOOS)
}
