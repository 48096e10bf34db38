package app

import (
	"ember/emberos/kernel"
	"ember/emberos/tasks/blink"
	"ember/emberos/tasks/console"
	"ember/emberos/tasks/heartbeat"
	"ember/emberos/tasks/worker"
)

// Static stack sizes must fit the build's limits; a violation is a negative
// array length at compile time.
var (
	_ [kernel.MaxStackWords - heartbeat.StackWords]struct{}
	_ [kernel.MaxStackWords - blink.StackWords]struct{}
	_ [kernel.MaxStackWords - worker.StackWords]struct{}
	_ [kernel.MaxStackWords - console.StackWords]struct{}

	_ [kernel.ArenaWords - heartbeat.StackWords - blink.StackWords - worker.StackWords - console.StackWords]struct{}
	_ [kernel.MaxThreads - 4]struct{}
)
