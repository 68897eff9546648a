package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/experiment"
	"github.com/samuelfneumann/retrolearn/trainer"
	"github.com/samuelfneumann/retrolearn/utils/progressbar"
	"github.com/spf13/cobra"
)

const barWidth int = 40

var (
	epochs int
	batch  int
	save   bool
	load   bool

	episodes        int
	steps           int
	returnsFile     string
	lengthsFile     string
	checkpointEvery int
)

// TrainImitation trains and optionally saves the imitation model of the
// Session's current environment
func TrainImitation(ctx context.Context, s *experiment.Session, epochs,
	batch int, save bool) error {
	t := s.Imitation()
	if epochs <= 0 {
		epochs = t.Config().Epochs
	}
	bar := progressbar.NewManualProgressBar(os.Stdout, barWidth, epochs)
	status := t.OnProgress
	t.OnProgress = func(env string, p trainer.Progress) {
		status(env, p)
		bar.Increment()
		bar.SetLabel("loss=%.5f val=%.5f", p.Loss, p.ValLoss)
		bar.Display()
	}

	res, err := s.TrainImitation(epochs, batch)
	if err != nil {
		return err
	}
	bar.Done()
	fmt.Printf("%v: %d samples (%d train, %d validation), loss=%.5f "+
		"val=%.5f\n", s.Kind(), res.Samples, res.Train, res.Val, res.Loss,
		res.ValLoss)

	if save {
		return s.SaveImitation(ctx)
	}
	return nil
}

func TrainImitationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train-imitation",
		Short: "Behaviour clone the recorded demonstrations of an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, s *experiment.Session) error {
				if load {
					// Continue from the saved model, if there is one
					_ = s.LoadImitation(ctx)
				}
				return TrainImitation(ctx, s, epochs, batch, save)
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&epochs, "epochs", 0, "passes over the dataset (0 uses the configured value)")
	flags.IntVar(&batch, "batch", 0, "batch size (0 uses the configured value)")
	flags.BoolVarP(&save, "save", "s", true, "save the trained model")
	flags.BoolVarP(&load, "load", "l", false, "continue from the saved model")
	return cmd
}

// TrainRL trains the policy gradient policy on Fish, tracking episode
// returns and lengths if filenames are given
func TrainRL(ctx context.Context, s *experiment.Session, episodes,
	steps int, load, save bool, returns, lengths string,
	checkpointEvery int) error {
	if !load || s.LoadRL(ctx) != nil {
		if err := s.InitRL(); err != nil {
			return err
		}
	}

	t := s.Reinforce()
	var trackers experiment.Trackers
	if returns != "" {
		trackers = append(trackers, experiment.NewReturnTracker(returns))
	}
	if lengths != "" {
		trackers = append(trackers, experiment.NewEpisodeLengthTracker(lengths))
	}
	if checkpointEvery > 0 {
		trackers = append(trackers, experiment.NewCheckpointer(checkpointEvery,
			func() error { return s.SaveRL(ctx) }))
	}
	if len(trackers) > 0 {
		t.Tracker = trackers
	}

	if episodes <= 0 {
		episodes = t.Config().Episodes
	}
	bar := progressbar.NewManualProgressBar(os.Stdout, barWidth, episodes)
	status := t.OnProgress
	t.OnProgress = func(p trainer.Progress) {
		status(p)
		bar.Increment()
		bar.SetLabel("return=%.2f steps=%d", p.Return, p.Steps)
		bar.Display()
	}

	avg, err := s.TrainRL(episodes, steps)
	if err != nil {
		return err
	}
	bar.Done()
	fmt.Printf("average return %.2f, best %.2f over %d episodes\n", avg,
		t.BestReturn(), t.Episodes())

	if err := trackers.Save(); err != nil {
		return err
	}
	if save {
		return s.SaveRL(ctx)
	}
	return nil
}

func TrainRLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train-rl",
		Short: "Train the Fish policy with REINFORCE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, s *experiment.Session) error {
				return TrainRL(ctx, s, episodes, steps, load, save,
					returnsFile, lengthsFile, checkpointEvery)
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&episodes, "episodes", 0, "training episodes (0 uses the configured value)")
	flags.IntVar(&steps, "steps", 0, "maximum steps per episode (0 uses the configured value)")
	flags.BoolVarP(&save, "save", "s", true, "save the trained policy")
	flags.BoolVarP(&load, "load", "l", false, "continue from the saved policy")
	flags.StringVar(&returnsFile, "returns", "", "file to save episode returns to")
	flags.StringVar(&lengthsFile, "lengths", "", "file to save episode lengths to")
	flags.IntVar(&checkpointEvery, "checkpoint-every", 0, "save the policy every N episodes")
	return cmd
}

// DemoRL runs a noise-free episode of the saved Fish policy
func DemoRL(ctx context.Context, s *experiment.Session, steps int) error {
	// Without a saved policy the demo takes zero actions
	_ = s.LoadRL(ctx)

	total, err := s.DemoRL(steps)
	if err != nil {
		return err
	}
	fmt.Printf("%v demo total reward %.2f, best %.2f\n", environment.Fish,
		total, s.Reinforce().BestReturn())
	return nil
}

func DemoRLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo-rl",
		Short: "Run the saved Fish policy without exploration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, s *experiment.Session) error {
				return DemoRL(ctx, s, steps)
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "episode steps (0 uses the configured value)")
	return cmd
}
