// Command tierctl drives a tiercache stack described by a YAML file.
//
//	tierctl --config tiers.yaml set user:1 '{"name":"Ada"}'
//	tierctl --config tiers.yaml get user:1
//	tierctl layers
//
// Flags default from TIERCTL_* environment variables; a .env file in the
// working directory is loaded first when present.
package main

import (
	"fmt"
	"os"
)

func main() {
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tierctl:", err)
		os.Exit(2)
	}
	if err := newRootCmd(e, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
