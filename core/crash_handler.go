package core

import (
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	crashMu   sync.RWMutex
	crashHook func(r any, stack []byte)
)

// SetCrashHook installs a function invoked after a recovered panic has been logged
// The terminal demo uses it to restore the screen before exiting
func SetCrashHook(fn func(r any, stack []byte)) {
	crashMu.Lock()
	defer crashMu.Unlock()
	crashHook = fn
}

// HandleCrash logs a recovered panic with its stack trace and forwards it to the crash hook
func HandleCrash(r any) {
	if r == nil {
		return
	}

	stack := debug.Stack()
	log.WithField("panic", r).Errorf("crash detected\n%s", stack)

	crashMu.RLock()
	hook := crashHook
	crashMu.RUnlock()

	if hook != nil {
		hook(r, stack)
	}
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword for every background goroutine
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
