// The main package for the coffeemap executable.
package main

import (
	"github.com/JakeFAU/coffeemap/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
