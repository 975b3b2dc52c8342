// Command demoqa inspects and exercises the demoqa.com e2e suite setup:
// profiles, retry policies, site reachability and stored results.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
