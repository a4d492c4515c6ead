// Command cachectl inspects and edits a cachekit cache from the shell.
//
//	cachectl --config cache.yaml set users/42 '{"name":"Ada"}' --expire 60
//	cachectl --config cache.yaml get users/42
//	cachectl --config cache.yaml --backend redis clear users
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
