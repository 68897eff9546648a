package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/samuelfneumann/retrolearn/config"
	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/experiment"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/spf13/cobra"
)

// DatasetStats prints the number of demonstrations of every
// environment and the size of the stored datasets
func DatasetStats(ctx context.Context, s *experiment.Session,
	kv store.KV) error {
	for _, kind := range environment.Kinds {
		ds := s.Datasets().Get(kind.String())
		fmt.Printf("%-6v %6d / %d samples\n", kind, ds.Len(), ds.Cap())
	}

	data, err := kv.Get(ctx, dataset.Key)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("nothing stored")
		return nil
	} else if err != nil {
		return err
	}
	fmt.Printf("stored %v\n", datasize.ByteSize(len(data)).HumanReadable())
	return nil
}

func DatasetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect or clear the recorded demonstrations",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print the number of recorded demonstrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, db, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return DatasetStats(ctx, s, db)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the demonstrations of the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, s *experiment.Session) error {
				if err := s.ClearDataset(ctx); err != nil {
					return err
				}
				fmt.Println(s.Status().Lines()[0])
				return nil
			})
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func InitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [file]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "retrolearn.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Printf("wrote %v\n", path)
			return nil
		},
	}
}
