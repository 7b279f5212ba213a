// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/adlibrary/internal/pipeline"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Print a user's reconciled analysis library",
	Long: `Reconcile fetches a user's records from every source, merges records
that describe the same analysis, and prints the result newest first.

A source that fails is reported as a warning and the remaining sources are
still used. When every source fails the last cached library is shown and
marked stale.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")

	a, err := appFromConfig()
	if err != nil {
		return err
	}
	defer a.close()

	run := a.pipeline.Run
	if noCache {
		run = a.pipeline.Refresh
	}
	out, err := run(cmd.Context(), userID)
	pipeline.FormatWarnings(out, os.Stderr)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return pipeline.FormatJSON(out, w)
	case yamlOutput:
		return pipeline.FormatYAML(out, w)
	}
	pipeline.FormatTable(out, w)
	if out.Stale {
		fmt.Fprintln(os.Stderr, "warning: every source failed; showing the last cached library")
	}
	return nil
}

func init() {
	reconcileCmd.Flags().String("user", "", "user id whose library to reconcile")
	reconcileCmd.Flags().Bool("no-cache", false, "ignore any cached library and recompute")
	reconcileCmd.Flags().Bool("json", false, "output as JSON")
	reconcileCmd.Flags().Bool("yaml", false, "output as YAML")
	_ = reconcileCmd.MarkFlagRequired("user")
	reconcileCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(reconcileCmd)
}
