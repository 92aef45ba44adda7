// The main package for the jobscout executable.
package main

import (
	"jobscout/cmd"
)

func main() {
	cmd.Execute()
}
