package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/healthbot"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/runner"
	"github.com/hupe1980/healthbot/server"
)

type chatFlags struct {
	userID    string
	sessionID string
	location  string
	verbose   bool
}

func newChatCmd() *cobra.Command {
	var f chatFlags

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant in the terminal",
		Long: `Send one message, or start an interactive session when no message is given.

Interactive sessions keep one session ID so that follow-up questions see the
earlier turns. Type "exit" or press Ctrl-D to leave.`,
		Example: `  # One question
  healthbot chat "I have a headache and feel dizzy"

  # Interactive session with streamed agent events
  healthbot chat --user alice --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if f.sessionID == "" {
				f.sessionID = core.NewID()
			}

			out := cmd.OutOrStdout()

			if len(args) > 0 {
				return chatTurn(cmd.Context(), app, f, strings.Join(args, " "), out)
			}

			return chatLoop(cmd.Context(), app, f, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVarP(&f.userID, "user", "u", "cli", "User ID")
	cmd.Flags().StringVarP(&f.sessionID, "session", "s", "", "Session ID (random when empty)")
	cmd.Flags().StringVar(&f.location, "location", "", "Location used for hospital searches")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Stream agent events while the turn runs")

	return cmd
}

func chatLoop(ctx context.Context, app *healthbot.App, f chatFlags, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "💬 Ask a health question (exit to quit)")

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		msg := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(msg) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := chatTurn(ctx, app, f, msg, out); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
		}
	}
}

func chatTurn(ctx context.Context, app *healthbot.App, f chatFlags, msg string, out io.Writer) error {
	in := runner.ChatInput{UserID: f.userID, SessionID: f.sessionID, Message: msg, Location: f.location}

	if !f.verbose {
		res, err := app.Chat(ctx, in)
		if err != nil {
			return err
		}

		printAnswer(out, res.Answer())

		return nil
	}

	_, events, errs, err := app.Runner.Run(ctx, in)
	if err != nil {
		return err
	}

	answer := consumeEvents(out, events)

	if err := <-errs; err != nil {
		return err
	}

	printAnswer(out, answer)

	return nil
}

// consumeEvents prints the event stream and returns the answer carried by
// the final event.
func consumeEvents(out io.Writer, events <-chan core.Event) string {
	var answer string

	for ev := range events {
		switch {
		case ev.IsFinal():
			answer = ev.Text
		case ev.HasError():
			fmt.Fprintf(out, "  [%s] error: %s\n", ev.Author, ev.Error)
		case ev.IsEscalation():
			fmt.Fprintf(out, "  [%s] 🚨 %s\n", ev.Author, ev.Text)
		case ev.Text != "":
			fmt.Fprintf(out, "  [%s] %s\n", ev.Author, ev.Text)
		default:
			fmt.Fprintf(out, "  [%s] done\n", ev.Author)
		}
	}

	return answer
}

func printAnswer(out io.Writer, answer string) {
	if answer == "" {
		answer = server.FallbackResponse
	}

	fmt.Fprintf(out, "\n%s\n\n", answer)
}
