package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile  string
	logLevel string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterboard",
		Short:         "Rank, highlight and explain KUCCPS cluster scores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)")

	root.AddCommand(showCmd())
	root.AddCommand(topCmd())
	root.AddCommand(detailCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(browseCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())

	return root
}

func showCmd() *cobra.Command {
	var opts showOptions

	cmd := &cobra.Command{
		Use:   "show [subject=GRADE ...]",
		Short: "Show every cluster in tiers, from a payload file or by scoring grades",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.grades = args
			return runShow(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "payload JSON file (- for stdin)")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort mode: number, points, non-zero (default: from config)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "list clusters hidden by the sort mode")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func topCmd() *cobra.Command {
	var (
		file       string
		n          int
		sendNotify bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "top [subject=GRADE ...]",
		Short: "Show the highest-scoring clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(cmd.Context(), cmd.OutOrStdout(), file, args, n, sendNotify, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file (- for stdin)")
	cmd.Flags().IntVarP(&n, "count", "n", 0, "number of clusters (default: from config)")
	cmd.Flags().BoolVar(&sendNotify, "notify", false, "send the highlights to configured destinations")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func detailCmd() *cobra.Command {
	var (
		file       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "detail <id|aggregate> [subject=GRADE ...]",
		Short: "Show the subjects behind one cluster's score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetail(cmd.Context(), cmd.OutOrStdout(), file, args[0], args[1:], jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file (- for stdin)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func scoreCmd() *cobra.Command {
	var opts showOptions

	cmd := &cobra.Command{
		Use:   "score subject=GRADE ...",
		Short: "Score grades with the scoring service and show the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.grades = args
			return runShow(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort mode: number, points, non-zero (default: from config)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "list clusters hidden by the sort mode")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func reportCmd() *cobra.Command {
	var file, output string

	cmd := &cobra.Command{
		Use:   "report [subject=GRADE ...]",
		Short: "Write a plain-text report of every cluster, the highlights and the aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), file, args, output)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default: stdout)")
	return cmd
}

func browseCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "browse [subject=GRADE ...]",
		Short: "Browse clusters interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), file, args)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file (- for stdin)")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		port int
		file string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, file)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file to serve before the first delivery")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve ranking tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}
}
