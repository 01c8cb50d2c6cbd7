package record

import (
	"fmt"
	"time"

	"github.com/slowstore/slowstore/cmd/util"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// add flags
	key := "steps"
	undoCmd.Flags().Int(key, 1, util.WrapString("How many changes to step back"))
	redoCmd.Flags().Int(key, 1, util.WrapString("How many changes to re-apply"))
}

var (
	addCmd = &cobra.Command{
		Use:   "add [key] [field=value ...]",
		Short: "Adds a record, or merges the given fields into an existing one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			fields, err := util.ParseFields(args[1:])
			if err != nil {
				return err
			}
			if _, err := cliStore.Upsert(key, model.DynamicFromMap(fields)); err != nil {
				return err
			}
			fmt.Println("added successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key] [field]",
		Short: "Reads a record, or a single field of it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			rec, found, err := cliStore.Get(key)
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			if len(args) == 2 {
				value, err := rec.Get(args[1])
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, %s=%v\n", key, args[1], value)
				return nil
			}
			fmt.Printf("key=%s, dirty=%t, changes=%d\n%s",
				key, rec.IsDirty(), len(rec.History()), util.FormatEntity(rec.Entity()))
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [field] [value]",
		Short: "Sets one field of an existing record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			rec, found, err := cliStore.Get(key)
			if err != nil {
				return err
			}
			if !found {
				return store.NewError(store.RetCKeyNotFound,
					fmt.Sprintf("no record with key %q", key))
			}
			if err := rec.Set(args[1], util.ParseValue(args[2])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a record and its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a record exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			fmt.Printf("key=%s, found=%t\n", key, cliStore.Contains(key))
			return nil
		},
	}
	historyCmd = &cobra.Command{
		Use:   "history [key]",
		Short: "Prints the change history of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			rec, found, err := cliStore.Get(key)
			if err != nil {
				return err
			}
			if !found {
				return store.NewError(store.RetCKeyNotFound,
					fmt.Sprintf("no record with key %q", key))
			}
			history := rec.History()
			if len(history) == 0 {
				fmt.Println("no recorded changes")
				return nil
			}
			for i, change := range history {
				fmt.Printf("%3d  %s  %s: %v -> %v\n",
					i+1, change.Date.Format(time.RFC3339), change.Field, change.OldValue, change.NewValue)
			}
			return nil
		},
	}
	undoCmd = &cobra.Command{
		Use:   "undo [key]",
		Short: "Reverts the most recent change(s) of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, found, err := cliStore.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				return store.NewError(store.RetCKeyNotFound,
					fmt.Sprintf("no record with key %q", args[0]))
			}
			steps := viper.GetInt("steps")
			if steps < 1 {
				return store.NewError(store.RetCInvalidOperation, "steps must be at least 1")
			}
			undone := 0
			for i := 0; i < steps; i++ {
				applied, err := rec.Undo()
				if err != nil {
					return err
				}
				if !applied {
					break
				}
				undone++
			}
			if undone == 0 {
				fmt.Println("nothing to undo")
				return nil
			}
			fmt.Printf("undone %d change(s)\n", undone)
			return nil
		},
	}
	redoCmd = &cobra.Command{
		Use:   "redo [key]",
		Short: "Re-applies the most recently undone change(s) of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, found, err := cliStore.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				return store.NewError(store.RetCKeyNotFound,
					fmt.Sprintf("no record with key %q", args[0]))
			}
			steps := viper.GetInt("steps")
			if steps < 1 {
				return store.NewError(store.RetCInvalidOperation, "steps must be at least 1")
			}
			redone := 0
			for i := 0; i < steps; i++ {
				applied, err := rec.Redo()
				if err != nil {
					return err
				}
				if !applied {
					break
				}
				redone++
			}
			if redone == 0 {
				fmt.Println("nothing to redo")
				return nil
			}
			fmt.Printf("redone %d change(s)\n", redone)
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit [key]",
		Short: "Writes a record's document to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliStore.Commit(args[0]); err != nil {
				return err
			}
			fmt.Println("committed successfully")
			return nil
		},
	}
)
