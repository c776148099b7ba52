/*
This is an example of application that will use the
engine content runtime to test things out
*/
package main

import (
	"os"

	"github.com/emberworks/ember/engine/core"
	"github.com/emberworks/ember/testbed"
)

func main() {
	demo := testbed.NewDemo()

	if err := demo.Initialize(); err != nil {
		core.LogError("initialize failed: %v", err)
		os.Exit(1)
	}
	defer demo.Shutdown()

	if err := demo.Run(); err != nil {
		core.LogError("demo failed: %v", err)
		demo.Shutdown()
		os.Exit(1)
	}
}
