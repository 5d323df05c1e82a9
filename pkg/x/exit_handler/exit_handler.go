package exit_handler

import (
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// The exit_handler package keeps a list of resources that must be released before the program exits.  Call
// HandleSignals() early in main() so the list is run on SIGINT or SIGTERM, and RunExitFuncs() before returning
// from main() or calling os.Exit().  Closing a tun/tap channel from here also unblocks any pending read.

type exitFunc struct {
	name string
	f    func() error
	once sync.Once
}

func (ef *exitFunc) run() {
	ef.once.Do(func() {
		err := ef.f()
		if err != nil {
			log.Warnf("error releasing %s: %s", ef.name, err)
		}
	})
}

var (
	lock      sync.Mutex
	exitFuncs []*exitFunc
)

// AddExitFunc registers a function to run at exit, and returns a function that runs it early.  Either way,
// it only runs once.
func AddExitFunc(name string, f func() error) func() {
	ef := &exitFunc{
		name: name,
		f:    f,
	}
	lock.Lock()
	exitFuncs = append(exitFuncs, ef)
	lock.Unlock()
	return ef.run
}

// RunExitFuncs runs all registered functions that have not run yet, most recently added first
func RunExitFuncs() {
	lock.Lock()
	efs := make([]*exitFunc, len(exitFuncs))
	copy(efs, exitFuncs)
	lock.Unlock()
	for i := len(efs) - 1; i >= 0; i-- {
		efs[i].run()
	}
}

func exitCode(s os.Signal) int {
	switch s {
	case syscall.SIGINT:
		return 130
	case syscall.SIGTERM:
		return 143
	default:
		return 255
	}
}

var signalOnce sync.Once

// HandleSignals runs the exit functions and exits when SIGINT or SIGTERM is received.  If exit is false, the
// exit functions run but the process keeps going, which lets a blocked reader notice its channel was closed.
func HandleSignals(exit bool) {
	signalOnce.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigs
			log.Debugf("received %s, releasing resources", s)
			RunExitFuncs()
			if exit {
				os.Exit(exitCode(s))
			}
		}()
	})
}
