package cmd

import (
	"fmt"
	"os"

	"github.com/slowstore/slowstore/cmd/record"
	storecmd "github.com/slowstore/slowstore/cmd/store"
	"github.com/slowstore/slowstore/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "slowstore",
		Short: "file backed record store with change tracking",
		Long: fmt.Sprintf(`slowstore (v%s)

A file backed store for structured records. Every record lives in its own
JSON document, every tracked change can be undone and redone, and the
change history is persisted alongside the data.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of slowstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slowstore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(record.RecordCommands)
	RootCmd.AddCommand(storecmd.StoreCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "dir"
	RootCmd.PersistentFlags().String(key, "./store", util.WrapString("Directory holding the record documents"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("Log level (debug, info, warn, error)"))
	key = "save-on-change"
	RootCmd.PersistentFlags().Bool(key, true, util.WrapString("Persist records immediately after every tracked change"))
	key = "persist-history"
	RootCmd.PersistentFlags().Bool(key, true, util.WrapString("Write the change history into the documents"))
	key = "load-history"
	RootCmd.PersistentFlags().Bool(key, true, util.WrapString("Rebuild the change history from the documents on load"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
