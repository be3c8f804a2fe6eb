package main

import (
	"encoding/json"
	"fmt"
	"github.com/coursedb/internal/config"
	"github.com/coursedb/internal/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"io"
)

var (
	configFile string
	envFile    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seed",
		Short: "Reset and seed the course DynamoDB tables",
		Long: `
Deletes every table in the target DynamoDB instance, recreates the
Transaction, Course and CourseProgress tables and loads the JSON fixtures.

Outside production the local endpoint is used with placeholder credentials.
Set PRODUCTION=true to target AWS with credentials from the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCommand("run"),
	}
	root.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile, "config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Delete all tables, recreate them and load fixtures",
			RunE:  runCommand("run"),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Delete every table",
			RunE:  runCommand("reset"),
		},
		&cobra.Command{
			Use:   "create-tables",
			Short: "Create or update the entity tables",
			RunE:  runCommand("createTables"),
		},
		&cobra.Command{
			Use:   "load",
			Short: "Load the fixture files into existing tables",
			RunE:  runCommand("load"),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List tables with their item counts",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), configFile, envFile)
				if err != nil {
					return err
				}
				return a.printStatus(cmd)
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON Schema of each entity record",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printSchemas(cmd.OutOrStdout())
			},
		},
	)
	return root
}

func runCommand(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configFile, envFile)
		if err != nil {
			return fmt.Errorf("failed to initialise: %w", err)
		}
		return a.dispatch(cmd.Context(), name)
	}
}

func (a *app) printStatus(cmd *cobra.Command) error {
	ctx := cmd.Context()
	names, err := a.store.ListTableNames(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tables := schema.Tables(a.cfg.Capacity.Read, a.cfg.Capacity.Write)
	expected := map[string]bool{}
	for _, t := range tables {
		expected[t.Name] = true
	}

	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	for _, name := range names {
		count, err := a.store.CountItems(ctx, name)
		if err != nil {
			return err
		}
		if expected[name] {
			green.Fprintf(out, "%-20s", name)
			delete(expected, name)
		} else {
			yellow.Fprintf(out, "%-20s", name)
		}
		fmt.Fprintf(out, " %d items\n", count)
	}
	red := color.New(color.FgRed)
	for _, t := range tables {
		if expected[t.Name] {
			red.Fprintf(out, "%-20s missing\n", t.Name)
		}
	}
	return nil
}

func printSchemas(out io.Writer) error {
	for _, t := range schema.Tables(1, 1) {
		data, err := json.MarshalIndent(t.JSONSchema(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n%s\n", t.Name, data)
	}
	return nil
}
