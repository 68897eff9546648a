package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/experiment"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/spf13/cobra"
)

var (
	driveFrames int
	driveKeys   string
	driveDt     float64
	driveRecord bool
	driveAuto   bool
	driveLoad   bool
)

// ParseInput parses a comma separated list of held keys, e.g. "up,left"
func ParseInput(keys string) (environment.Input, error) {
	var in environment.Input
	for _, key := range strings.Split(keys, ",") {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "":
		case "left":
			in.Left = true
		case "right":
			in.Right = true
		case "up":
			in.Up = true
		case "down":
			in.Down = true
		default:
			return in, fmt.Errorf("parseInput: unknown key %q", key)
		}
	}
	return in, nil
}

// Drive runs the current environment for a number of frames with the
// given keys held down
func Drive(ctx context.Context, s *experiment.Session, frames int,
	in environment.Input, dt float64, record, auto, load bool) error {
	if load {
		// Reported in the status log
		_ = s.LoadImitation(ctx)
	}
	if auto {
		s.ToggleAuto()
	}
	if record {
		s.StartRecording()
	}

	s.Reset()
	var step timestep.TimeStep
	for i := 0; i < frames; i++ {
		step = s.Tick(ctx, in, dt)
	}

	if record {
		if err := s.StopRecording(ctx); err != nil {
			return err
		}
	}

	printStatus(s)
	fmt.Printf("%v after %d frames: %v, best %v, %d samples recorded\n",
		s.Kind(), frames, step, s.Env().BestText(), s.Dataset().Len())
	return nil
}

func DriveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Step the environment with held keys, optionally recording demonstrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := ParseInput(driveKeys)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, s *experiment.Session) error {
				return Drive(ctx, s, driveFrames, in, driveDt, driveRecord,
					driveAuto, driveLoad)
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&driveFrames, "frames", "n", 600, "number of frames")
	flags.StringVarP(&driveKeys, "keys", "k", "", "held keys, e.g. up,left")
	flags.Float64Var(&driveDt, "dt", environment.FixedDt, "seconds per frame")
	flags.BoolVarP(&driveRecord, "record", "r", false, "record demonstrations")
	flags.BoolVarP(&driveAuto, "auto", "a", false, "let the imitation model drive")
	flags.BoolVarP(&driveLoad, "load", "l", false, "load the saved imitation model")
	return cmd
}
