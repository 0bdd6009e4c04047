package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/reactive-movies/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "reactive-movies",
		Short:        "Movie catalogue services",
		Long:         "Runs one of the movie-info, review or movie aggregator services. Configuration is read from the environment.",
		SilenceUsage: true,
	}

	movieInfoCmd := &cobra.Command{
		Use:   "movieinfo",
		Short: "Serve /movieinfos and the movie-info stream",
		RunE:  runService(config.MovieInfo),
	}
	reviewsCmd := &cobra.Command{
		Use:   "reviews",
		Short: "Serve /reviews",
		RunE:  runService(config.Reviews),
	}
	aggregatorCmd := &cobra.Command{
		Use:     "aggregator",
		Aliases: []string{"movies"},
		Short:   "Serve /movies by joining the movie-info and review services",
		RunE:    runService(config.Aggregator),
	}

	for _, cmd := range []*cobra.Command{movieInfoCmd, reviewsCmd} {
		cmd.Flags().Bool("migrate", true, "Apply embedded schema migrations on startup")
	}
	for _, cmd := range []*cobra.Command{movieInfoCmd, reviewsCmd, aggregatorCmd} {
		cmd.Flags().String("port", "", "Listen port (overrides PORT)")
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runService(svc config.Service) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(svc)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		migrate := false
		if cmd.Flags().Lookup("migrate") != nil {
			migrate, _ = cmd.Flags().GetBool("migrate")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, migrate)
	}
}
