// Command netsim runs network simulations described in scenario files.
package main

import "github.com/sarchlab/netsim/cmd/netsim/cmd"

func main() {
	cmd.Execute()
}
