// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/adlibrary/internal/pipeline"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached libraries",
	Long: `Cache inspects the reconciled library cache. It is most useful with the
sqlite backend, where libraries persist between runs.`,
}

// --- show subcommand ---

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached library for a user, fresh or stale",
	RunE:  runCacheShow,
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")

	a, err := appFromConfig()
	if err != nil {
		return err
	}
	defer a.close()

	e, ok, err := a.pipeline.Cached(cmd.Context(), userID)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(w, "No cached library for %s.\n", userID)
		return nil
	}

	state := "fresh"
	if !e.Fresh(time.Now()) {
		state = "stale"
	}
	fmt.Fprintf(w, "Stored %s, expires %s (%s)\n\n",
		e.StoredAt.Local().Format(time.DateTime), e.ExpiresAt.Local().Format(time.DateTime), state)
	pipeline.FormatTable(pipeline.Output{UserID: userID, Records: e.Records, FromCache: true}, w)
	return nil
}

// --- invalidate subcommand ---

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached library for a user",
	RunE:  runCacheInvalidate,
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")

	a, err := appFromConfig()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.pipeline.Invalidate(cmd.Context(), userID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Invalidated cached library for %s.\n", userID)
	return nil
}

func appFromConfig() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, loadedSecrets, nil, logger)
}

func init() {
	for _, c := range []*cobra.Command{cacheShowCmd, cacheInvalidateCmd} {
		c.Flags().String("user", "", "user id")
		_ = c.MarkFlagRequired("user")
		cacheCmd.AddCommand(c)
	}
	rootCmd.AddCommand(cacheCmd)
}
