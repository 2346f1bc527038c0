package main

import (
	"flag"
	"log"
	"runtime"
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	// See documentation for functions that are only allowed to be called
	// from the main thread.
	runtime.LockOSThread()

	flag.BoolVar(&args.debug, "debug", false,
		"Enable Vulkan validation layers and log their debug reports")
}

var args struct {
	debug bool
}

func main() {
	flag.Parse()

	app := NewApp(newConfig(args.debug))
	if err := app.Run(); err != nil {
		log.Fatalf("ERROR: %s", err)
	}
}
