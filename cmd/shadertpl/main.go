// Command shadertpl compiles shader templates.
package main

import (
	"fmt"
	"os"

	"github.com/jwtly10/shadertpl/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.ExitCodeFromError(err))
	}
}
