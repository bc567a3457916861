package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizwire/quizwire/internal/config"
	"github.com/quizwire/quizwire/internal/quizd"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference session service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := quizd.Config{}
			c.HTTP.Port = 5005
			c.Admin.Token = "localdev"

			if configPath != "" {
				if err := config.Load(configPath, &c); err != nil {
					return err
				}
			}

			s, err := quizd.Init(c)
			if err != nil {
				return err
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

			go s.Start()

			<-shutdown
			s.Shutdown()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	return cmd
}
