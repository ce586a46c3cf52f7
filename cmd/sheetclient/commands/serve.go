package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blutspende/go-sheetnet/sheettest"
)

var (
	serveListen string
	serveUsers  []string
)

func addServeFlags() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address, overrides serve.listen")
	serveCmd.Flags().StringSliceVar(&serveUsers, "user", nil, "registered user, may be repeated, overrides serve.users")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "runs an in-memory collaboration server for trials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := cfg.Serve.Listen
		if serveListen != "" {
			listen = serveListen
		}
		users := cfg.Serve.Users
		if len(serveUsers) > 0 {
			users = serveUsers
		}

		server, err := sheettest.Start(listen, users...)
		if err != nil {
			return err
		}
		log.Info().Str("addr", server.Addr().String()).Strs("users", users).Msg("serving")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info().Msg("shutting down")
		return server.Close()
	},
}
