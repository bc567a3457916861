package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quizwire/quizwire/internal/admin"
	"github.com/quizwire/quizwire/internal/api"
	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/store"
)

func newControlCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Drive a session as the administrator",
	}

	cmd.PersistentFlags().StringVar(&token, "token",
		os.Getenv("QUIZWIRE_TOKEN"), "admin bearer token")

	controller := func() (*admin.Controller, error) {
		st, err := store.Open(statePath)
		if err != nil {
			return nil, err
		}
		return admin.NewController(admin.Config{
			API:   api.New(api.Config{BaseURL: serverURL, Token: token}),
			Store: st,
		}), nil
	}

	start := &cobra.Command{
		Use:   "start <game-id>",
		Short: "Start a new session for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := controller()
			if err != nil {
				return err
			}

			sessionID, err := ctl.Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("session %d started\n", sessionID)
			return nil
		},
	}

	advance := &cobra.Command{
		Use:   "advance <game-id>",
		Short: "Advance the session to the next question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := controller()
			if err != nil {
				return err
			}

			if err := ctl.Advance(cmd.Context(), args[0]); err != nil {
				return err
			}

			if sessionID, ok := ctl.SessionFor(args[0]); ok {
				status, err := ctl.Status(cmd.Context(), sessionID)
				if err == nil {
					printStatus(sessionID, status)
				}
			}
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop <game-id>",
		Short: "End the session and print rankings and question stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := controller()
			if err != nil {
				return err
			}

			results, err := ctl.Stop(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printResults(ctl, results)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the live session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := controller()
			if err != nil {
				return err
			}

			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}

			st, err := ctl.Status(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			printStatus(sessionID, st)
			return nil
		},
	}

	results := &cobra.Command{
		Use:   "results <session-id>",
		Short: "Show rankings and question stats of a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := controller()
			if err != nil {
				return err
			}

			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}

			res, err := ctl.Results(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			printResults(ctl, res)
			return nil
		},
	}

	cmd.AddCommand(start, advance, stop, status, results)
	return cmd
}

func parseSessionID(arg string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func printStatus(sessionID int, st domain.SessionStatus) {
	state := "finished"
	if st.Active {
		state = "active"
	}
	fmt.Printf("session %d: %s, position %d, players: %s\n",
		sessionID, state, st.Position, strings.Join(st.Players, ", "))
}

func printResults(ctl *admin.Controller, results []domain.PlayerResult) {
	fmt.Println("top players:")
	for i, entry := range ctl.Rankings(results) {
		fmt.Printf("  %d. %s  (%d correct)\n", i+1, entry.Name, entry.Correct)
	}

	fmt.Println("per-question stats:")
	for i, stat := range ctl.Stats(results) {
		fmt.Printf("  q%d: %.1f%% correct, avg response %ss (%d answered)\n",
			i+1, stat.PercentageCorrect, stat.AvgResponseSeconds.StringFixed(1), stat.Answered)
	}
}
