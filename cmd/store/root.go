package store

import (
	"github.com/slowstore/slowstore/cmd/util"
	"github.com/slowstore/slowstore/lib/model"
	libstore "github.com/slowstore/slowstore/lib/store"
	"github.com/spf13/cobra"
)

var (
	cliStore libstore.IStore[*model.Dynamic]

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:                "store",
		Short:              "Work with the store as a whole",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: teardownStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitCLIConfig)

	// Add subcommands
	StoreCommands.AddCommand(keysCmd)
	StoreCommands.AddCommand(listCmd)
	StoreCommands.AddCommand(findCmd)
	StoreCommands.AddCommand(commitCmd)
	StoreCommands.AddCommand(clearCmd)
	StoreCommands.AddCommand(statsCmd)
	StoreCommands.AddCommand(perfCmd)
}

// setupStore opens the configured store for all store subcommands
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
