package record

import (
	"github.com/slowstore/slowstore/cmd/util"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
	"github.com/spf13/cobra"
)

var (
	cliStore store.IStore[*model.Dynamic]

	// RecordCommands represents the record command group
	RecordCommands = &cobra.Command{
		Use:                "record",
		Short:              "Work with single records",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: teardownStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitCLIConfig)

	// Add subcommands
	RecordCommands.AddCommand(addCmd)
	RecordCommands.AddCommand(getCmd)
	RecordCommands.AddCommand(setCmd)
	RecordCommands.AddCommand(delCmd)
	RecordCommands.AddCommand(hasCmd)
	RecordCommands.AddCommand(historyCmd)
	RecordCommands.AddCommand(undoCmd)
	RecordCommands.AddCommand(redoCmd)
	RecordCommands.AddCommand(commitCmd)
}

// setupStore opens the configured store for all record subcommands
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	cliStore, err = util.OpenStore()
	return err
}

// teardownStore flushes and closes the store
func teardownStore(_ *cobra.Command, _ []string) error {
	if cliStore == nil {
		return nil
	}
	return cliStore.Close()
}
