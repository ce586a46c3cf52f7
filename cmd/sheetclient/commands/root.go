package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blutspende/go-sheetnet/config"
	"github.com/blutspende/go-sheetnet/logging"
)

var (
	Version   string
	BuildTime string
)

var (
	configPath string
	verbose    bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sheetclient",
	Short: "sheetclient edits spreadsheets on a collaboration server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("can not load %s: %w", configPath, err)
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}

		closer, err := logging.Initialize(loaded.Logging, "sheetclient")
		if err != nil {
			return err
		}
		log.Debug().Str("path", configPath).Msg("configuration loaded")

		cfg = loaded
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func Execute() {
	// parse flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "sheetclient.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log on debug level")
	addConnectFlags()
	addServeFlags()

	// add commands
	rootCmd.AddCommand(connectCmd, serveCmd, versionCmd)

	// execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
