// The main package for the crawlprime executable.
package main

import (
	"github.com/contextprime/crawlprime/cmd"
)

func main() {
	cmd.Execute()
}
