// Maktaba answers fluent queries over document collections mounted from
// content directories and SQLite tables.
//
// Usage:
//
//	# One-shot query against a configured collection
//	maktaba query guides --where published=eq:true --sort date:desc --limit 5
//
//	# Fuzzy full-text search with a neighbor window
//	maktaba query guides --search "instal" --surround getting-started
//
//	# Interactive shell
//	maktaba shell
//
//	# List mounted collections
//	maktaba collections
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
