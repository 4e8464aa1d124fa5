// cmd/server/main.go
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "server",
	Short:   "FarmChain product registry service",
	Long:    `FarmChain keeps a registry of farm products. Each product is stamped with the identity of the caller that created it and receives a sequential id.`,
	Version: version,
	// Serving is the default action.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
