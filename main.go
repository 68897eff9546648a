package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aunum/log"
	"github.com/samuelfneumann/retrolearn/config"
	"github.com/samuelfneumann/retrolearn/experiment"
	"github.com/samuelfneumann/retrolearn/peer"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/spf13/cobra"
)

// Flags shared by every command
var (
	configFile string
	database   string
	envName    string
	user       string
)

// loadConfig returns the configuration of the config file, or the
// default configuration if there is none, with command line overrides
func loadConfig() (config.Config, error) {
	c := config.Default()
	if configFile != "" {
		var err error
		if c, err = config.FromYaml(configFile); err != nil {
			return c, err
		}
	}

	if database != "" {
		c.Database = database
	}
	if envName != "" {
		c.Environment = envName
		if _, err := c.Kind(); err != nil {
			return c, err
		}
	}
	if user != "" {
		c.User = user
	}
	return c.Normalize(), nil
}

// openSession opens the SQLite store and a new Session on it. The
// returned store must be closed by the caller.
func openSession(ctx context.Context) (*experiment.Session, *store.SQLite,
	error) {
	c, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.OpenSQLite(c.Database)
	if err != nil {
		return nil, nil, err
	}

	s, err := experiment.NewSession(ctx, c, db, peer.NewHub(c.Peer.Buffer))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db, nil
}

// printStatus prints the status log of a Session, oldest line first
func printStatus(s *experiment.Session) {
	lines := s.Status().Lines()
	for i := len(lines) - 1; i >= 0; i-- {
		fmt.Println(lines[i])
	}
}

// run runs a command body with a Session, closing the store afterwards
func run(body func(ctx context.Context, s *experiment.Session) error) error {
	ctx := context.Background()
	s, db, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return body(ctx, s)
}

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "retrolearn",
		Short:         "Continuous-control environments with imitation and policy gradient learning",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&database, "db", "", "SQLite database (overrides the configuration)")
	flags.StringVarP(&envName, "env", "e", "", "environment: car, fish or drone")
	flags.StringVarP(&user, "user", "u", "", "user name shown to peers")

	cmd.AddCommand(
		InitConfigCommand(),
		DriveCommand(),
		TrainImitationCommand(),
		TrainRLCommand(),
		DemoRLCommand(),
		DatasetCommand(),
	)
	return cmd
}

func main() {
	if err := RootCommand().Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
