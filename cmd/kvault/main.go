// Command kvault inspects and edits a kvault store from the shell.
//
//	kvault --backend embedded --db-dir ./data set user '{"id":1}' --ttl 1h
//	kvault --backend embedded --db-dir ./data get user
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kvault:", err)
		os.Exit(1)
	}
}
