// einfiler files employer identification number applications for case records.
//
// Usage:
//
//	einfiler run case.json [--config.file=einfiler.yaml]
//	einfiler worker [--config.file=einfiler.yaml]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
