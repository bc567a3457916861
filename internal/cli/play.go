package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quizwire/quizwire/internal/api"
	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/event"
	"github.com/quizwire/quizwire/internal/play"
	"github.com/quizwire/quizwire/internal/score"
	"github.com/quizwire/quizwire/internal/store"
)

func newPlayCmd() *cobra.Command {
	var (
		sessionID int
		name      string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a session as a player and answer questions from stdin",
		Long: `Joins the given session (or resumes a previous identity for it), waits for
the game to start, and plays it: questions are printed as they open, answers
are selected by typing an answer id, and correct answers and final results
are printed as they become available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(statePath)
			if err != nil {
				return err
			}

			bus := event.NewBus()
			m := play.NewMachine(play.Config{
				API:   api.New(api.Config{BaseURL: serverURL}),
				Store: st,
				Bus:   bus,
			})
			defer m.Close()

			done := make(chan struct{})
			subscribeRenderer(bus, done)

			if err := m.Join(cmd.Context(), sessionID, name); err != nil {
				return err
			}
			fmt.Printf("joined session %d as %q\n", sessionID, name)

			input := readLines(cmd.Context())
			for {
				select {
				case <-done:
					return nil
				case <-cmd.Context().Done():
					return nil
				case line, ok := <-input:
					if !ok {
						<-done
						return nil
					}
					id, err := strconv.ParseInt(line, 10, 64)
					if err != nil {
						fmt.Printf("type an answer id to select it\n")
						continue
					}
					if err := m.Select(cmd.Context(), id); err != nil {
						fmt.Printf("select failed: %v\n", err)
						continue
					}
					fmt.Printf("selection: %v\n", m.Selected())
				}
			}
		},
	}

	cmd.Flags().IntVar(&sessionID, "session", 0, "session id to join")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func subscribeRenderer(bus *event.Bus, done chan struct{}) {
	bus.Subscribe(domain.EventNamePhaseChanged, func(_ context.Context, e event.Event) error {
		pc := e.(domain.EventPhaseChanged)
		switch pc.To {
		case domain.PhaseWaiting:
			fmt.Println("waiting for the game to start...")
		case domain.PhaseReveal:
			fmt.Println("time is up!")
		}
		return nil
	})

	bus.Subscribe(domain.EventNameQuestionChanged, func(_ context.Context, e event.Event) error {
		qc := e.(domain.EventQuestionChanged)
		fmt.Printf("\n%s  (%ds, %.0f points)\n", qc.Question.Text, qc.Question.Duration, qc.Question.Points)
		for _, a := range qc.Question.Answers {
			fmt.Printf("  [%d] %s\n", a.ID, a.Text)
		}
		return nil
	})

	bus.Subscribe(domain.EventNameRevealed, func(_ context.Context, e event.Event) error {
		r := e.(domain.EventRevealed)
		fmt.Printf("correct answers: %v\n", r.CorrectAnswers)
		return nil
	})

	bus.Subscribe(domain.EventNameFinished, func(_ context.Context, e event.Event) error {
		f := e.(domain.EventFinished)
		fmt.Println("\nsession finished, final standings:")
		for i, entry := range score.Rank(f.Results) {
			fmt.Printf("  %d. %s  (%d correct)\n", i+1, entry.Name, entry.Correct)
		}
		close(done)
		return nil
	})
}

func readLines(ctx context.Context) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
