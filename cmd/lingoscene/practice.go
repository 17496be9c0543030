package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/session"
	"github.com/ljankila/lingoscene/internal/stream"
	"github.com/spf13/cobra"
)

var practiceCmd = &cobra.Command{
	Use:   "practice [scope]",
	Short: "Run an interactive practice session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := app.close(); closeErr != nil {
				app.logger.Error("shutdown", "error", closeErr)
			}
		}()

		name := "practice"
		if len(args) == 1 {
			name = args[0]
		}
		return app.practice(cmd.Context(), name)
	},
}

func (app *application) practice(ctx context.Context, name string) error {
	scope, err := app.openScope(name)
	if err != nil {
		return err
	}
	for provider, key := range app.cfg.APIKeys() {
		scope.UpdateAPIKey(key, provider)
	}

	in := bufio.NewScanner(os.Stdin)

	if len(scope.Situations()) == 0 {
		fmt.Print("What would you like to practice? ")
		if !in.Scan() {
			return in.Err()
		}
		goal := strings.TrimSpace(in.Text())
		fmt.Println("Generating situations...")
		scope.GenerateSituations(ctx, goal)
		if len(scope.Situations()) == 0 {
			printErrors(scope)
			return errors.New("no situations could be generated")
		}
		scope.GenerateTitle(ctx)
		fmt.Printf("Generated %d situations under %q.\n", len(scope.Situations()), scope.Name())
	}

	fmt.Println(`Type to speak. Commands: /finish /next /prev /errors /quit`)

	scope.Start(ctx)
	printBanner(scope)
	return app.converse(ctx, scope, in)
}

// openScope rehydrates the named scope from the store if it was saved,
// and creates it otherwise.
func (app *application) openScope(name string) (*session.Scope, error) {
	views, err := app.manager.LoadScopeViews()
	if err != nil {
		return nil, err
	}
	for _, view := range views {
		if view.Name == name {
			return app.manager.LoadScope(view)
		}
	}
	return app.manager.NewScope(name)
}

func (app *application) converse(ctx context.Context, scope *session.Scope, in *bufio.Scanner) error {
	user := scope.UserProfile().Name
	for {
		switch scope.Stage() {
		case session.StageReport:
			printReport(scope.ActiveSituation())
			if scope.AllCompleted() {
				fmt.Println("All situations completed.")
			}
			fmt.Print("[enter=next situation, q=quit] ")
			if !in.Scan() {
				return in.Err()
			}
			if strings.TrimSpace(in.Text()) == "q" {
				return nil
			}
			scope.Next(ctx)
			printBanner(scope)

		case session.StageSituations:
			situation := scope.ActiveSituation()
			fmt.Print(prompt(scope, user))
			if !in.Scan() {
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
			case "/quit":
				return nil
			case "/finish":
				fmt.Println("Scoring the conversation...")
				scope.FinishSituation(ctx)
			case "/next":
				scope.Next(ctx)
				printBanner(scope)
			case "/prev":
				scope.Previous(ctx)
				printBanner(scope)
			case "/errors":
				printErrors(scope)
			default:
				app.sendAndFollow(ctx, situation, models.Message{Sender: user, Content: line})
			}

		default:
			return nil
		}
	}
}

func prompt(scope *session.Scope, user string) string {
	position := fmt.Sprintf("[%d/%d]", scope.ActiveIndex()+1, len(scope.Situations()))
	if timer := scope.Timer(); timer != nil && timer.Running() {
		return fmt.Sprintf("%s (%s) %s> ", position, timer.TimeLeft().Round(time.Second), user)
	}
	return fmt.Sprintf("%s %s> ", position, user)
}

// sendAndFollow runs the turn cycle in a goroutine and mirrors its
// reveal to the terminal as the characters land in the log. Messages
// appended without a reveal are printed after the turn settles.
func (app *application) sendAndFollow(ctx context.Context, situation *session.Situation, msg models.Message) {
	before := len(situation.Messages())
	done := make(chan struct{})
	go func() {
		situation.Send(ctx, msg)
		close(done)
	}()
	revealed := app.followReveal(situation.RevealKey(), done)
	<-done

	messages := situation.Messages()
	// Skip the user's own message and whatever the reveal already showed.
	for _, m := range messages[min(before+1, len(messages)) : len(messages)-revealed] {
		printMessage(m)
	}
}

// followReveal mirrors reveal updates for key until the turn finishes.
// It returns how many messages it printed in full.
func (app *application) followReveal(key string, done <-chan struct{}) int {
	printed := 0
	for {
		select {
		case <-done:
			return printed
		case updates, ok := <-app.broker.Watch(key):
			if !ok {
				// No reveal in flight yet; look again shortly.
				select {
				case <-done:
					return printed
				case <-time.After(25 * time.Millisecond):
				}
				continue
			}
			printed += printReveal(updates)
		}
	}
}

// printReveal renders a reveal channel incrementally and returns the
// number of messages it finished printing.
func printReveal(updates <-chan stream.Update) int {
	var (
		printed int
		sender  string
		shown   int
	)
	for u := range updates {
		if u.Sender != sender || len(u.Content) < shown {
			if sender != "" {
				fmt.Println()
			}
			fmt.Printf("%s: ", u.Sender)
			sender = u.Sender
			shown = 0
		}
		fmt.Print(u.Content[shown:])
		shown = len(u.Content)
		if u.Done {
			fmt.Println()
			printed++
			sender, shown = "", 0
		}
	}
	if sender != "" {
		// The reveal was cancelled mid-message; its prefix stays in
		// the log, so count it as shown.
		fmt.Println()
		printed++
	}
	return printed
}

func printBanner(scope *session.Scope) {
	situation := scope.ActiveSituation()
	if situation == nil {
		return
	}
	settings := situation.Settings()
	fmt.Printf("\n== %s ==\n", settings.Title)
	if settings.Scenario != "" {
		fmt.Println(settings.Scenario)
	}
	if settings.Objective != "" {
		fmt.Println("Objective:", settings.Objective)
	}
	names := make([]string, 0, len(situation.Agents()))
	for _, agent := range situation.Agents() {
		names = append(names, agent.Name())
	}
	if len(names) > 0 {
		fmt.Println("With:", strings.Join(names, ", "))
	}
	fmt.Println()
	for _, msg := range situation.Messages() {
		printMessage(msg)
	}
}

func printMessage(msg models.Message) {
	fmt.Printf("%s: %s\n", msg.Sender, msg.Content)
}

func printReport(situation *session.Situation) {
	if situation == nil {
		return
	}
	report := situation.Report()
	if report == nil {
		fmt.Println("No report could be generated for this situation.")
		return
	}
	fmt.Printf("\n-- Report: %s --\n", situation.Title())
	fmt.Printf("Overall %d  Grammar %d  Fluency %d  Role %d\n",
		report.Score.Overall, report.Score.Grammar, report.Score.Fluency, report.Score.Role)
	if report.Analysis != "" {
		fmt.Println(report.Analysis)
	}
	for _, comment := range report.Comments {
		fmt.Printf("  %q: %s\n", comment.Quote, comment.Analysis)
	}
}

func printErrors(scope *session.Scope) {
	errs := scope.Errors()
	if len(errs) == 0 {
		fmt.Println("No errors.")
		return
	}
	for _, e := range errs {
		fmt.Println("error:", e)
	}
}
