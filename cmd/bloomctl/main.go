// cmd/bloomctl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appVersion = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bloomctl",
		Short:         "Bloom operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = appVersion
	root.SetVersionTemplate("bloomctl v{{.Version}}\n")

	root.AddCommand(newRenderMonthCmd())
	root.AddCommand(newHashPasswordCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
