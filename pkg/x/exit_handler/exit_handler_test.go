package exit_handler

import (
	"fmt"
	"go.uber.org/goleak"
	"syscall"
	"testing"
)

func TestExitFuncs(t *testing.T) {
	defer goleak.VerifyNone(t)
	var order []string
	first := AddExitFunc("first", func() error {
		order = append(order, "first")
		return nil
	})
	AddExitFunc("second", func() error {
		order = append(order, "second")
		return fmt.Errorf("already closed")
	})
	first()
	first()
	RunExitFuncs()
	RunExitFuncs()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("exit funcs ran incorrectly: %v", order)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(syscall.SIGINT) != 130 || exitCode(syscall.SIGTERM) != 143 || exitCode(syscall.SIGHUP) != 255 {
		t.Fatal("wrong exit codes")
	}
}
