//go:build tinygo && baremetal && cortexm

package main

import (
	"ember/app"
	"ember/hal"
)

func main() {
	app.Run(hal.New())
}
