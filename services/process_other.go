//go:build !unix

package services

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
