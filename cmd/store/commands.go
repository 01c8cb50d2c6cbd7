package store

import (
	"fmt"
	"os"
	"reflect"

	"github.com/VictoriaMetrics/metrics"
	"github.com/slowstore/slowstore/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Prints all record keys in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range cliStore.Keys() {
				fmt.Println(key)
			}
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Prints all records with their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, rec := range cliStore.Records() {
				fmt.Printf("key=%s, dirty=%t, changes=%d\n%s",
					key, rec.IsDirty(), len(rec.History()), util.FormatEntity(rec.Entity()))
			}
			fmt.Printf("%d record(s)\n", cliStore.Len())
			return nil
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [field] [value]",
		Short: "Prints all records whose field equals the given value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := args[0]
			expected := util.ParseValue(args[1])

			found := 0
			for key, rec := range cliStore.Records() {
				value, err := rec.Entity().GetField(field)
				if err != nil || !reflect.DeepEqual(value, expected) {
					continue
				}
				found++
				fmt.Printf("key=%s\n%s", key, util.FormatEntity(rec.Entity()))
			}
			fmt.Printf("%d record(s) matched\n", found)
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Writes all dirty records to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliStore.CommitAll(); err != nil {
				return err
			}
			fmt.Println("committed successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Deletes all records and their documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliStore.Clear(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("prometheus") {
				// Dump the process metrics in Prometheus text format
				metrics.WritePrometheus(os.Stdout, true)
				return nil
			}

			info, err := cliStore.GetInfo()
			if err != nil {
				return err
			}
			fmt.Println(info.String())
			return nil
		},
	}
)

func init() {
	statsCmd.Flags().Bool("prometheus", false, util.WrapString("Print the metrics of this process in Prometheus text format instead of the store summary"))
}
