package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List saved practice scopes",
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

		views, err := app.manager.LoadScopeViews()
		if err != nil {
			return err
		}
		if len(views) == 0 {
			fmt.Println("No saved scopes.")
			return nil
		}
		for _, view := range views {
			finished := 0
			for _, sv := range view.SituationViews {
				if sv.FinishReport != nil {
					finished++
				}
			}
			fmt.Printf("%s\t%d situations\t%d finished\n", view.Name, len(view.SituationViews), finished)
		}
		return nil
	},
}

var scopesDeleteCmd = &cobra.Command{
	Use:   "delete <scope>",
	Short: "Delete a saved practice scope",
	Args:  cobra.ExactArgs(1),
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

		views, err := app.manager.LoadScopeViews()
		if err != nil {
			return err
		}
		for _, view := range views {
			if view.Name != args[0] {
				continue
			}
			if _, err = app.manager.LoadScope(view); err != nil {
				return err
			}
			if err = app.manager.DeleteScope(view.Name); err != nil {
				return err
			}
			fmt.Printf("Deleted %q.\n", view.Name)
			return nil
		}
		fmt.Printf("No saved scope named %q.\n", args[0])
		return nil
	},
}
