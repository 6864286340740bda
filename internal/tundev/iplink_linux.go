//go:build linux

package tundev

import "os/exec"

func runIPLink(args ...string) error {
	return exec.Command("ip", append([]string{"link"}, args...)...).Run()
}
