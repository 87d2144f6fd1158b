package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/clusterboard/internal/config"
	"github.com/elonfeng/clusterboard/internal/logging"
	"github.com/elonfeng/clusterboard/internal/mcp"
	"github.com/elonfeng/clusterboard/internal/render"
	"github.com/elonfeng/clusterboard/internal/tui"
	"github.com/elonfeng/clusterboard/pkg/cluster"
	"github.com/elonfeng/clusterboard/pkg/notify"
	"github.com/elonfeng/clusterboard/pkg/rank"
	"github.com/elonfeng/clusterboard/pkg/scoring"
	"github.com/elonfeng/clusterboard/pkg/server"
)

// logOutput is where diagnostics go; stdout carries command output.
var logOutput io.Writer = os.Stderr

func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(logOutput, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildClient(cfg *config.Config) *scoring.Client {
	return scoring.NewClient(cfg.Scoring.BaseURL, cfg.Scoring.ParseTimeout())
}

// buildSource picks a payload file when one is given, otherwise the
// scoring service with grades parsed from args.
func buildSource(cfg *config.Config, file string, args []string) (scoring.Source, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, errors.New("pass either --file or grades, not both")
		}
		return scoring.NewFileSource(file), nil
	}
	if len(args) == 0 {
		return nil, errors.New("no input: pass --file or subject=GRADE arguments")
	}
	grades, err := scoring.ParseGradeArgs(args)
	if err != nil {
		return nil, err
	}
	return scoring.NewServiceSource(buildClient(cfg), grades), nil
}

func buildNotifier(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.Slack.WebhookURL))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.Notify.Discord.WebhookURL))
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

// loadBoard fetches and normalizes one payload. A result with no valid
// cluster comes back as a nil board and a nil error: callers print the
// empty notice instead of rankings.
func loadBoard(ctx context.Context, logger *log.Logger, src scoring.Source) (*rank.Board, error) {
	logger.Debug("fetching payload", "source", src.Name())
	p, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name(), err)
	}

	b, err := rank.NewBoard(p)
	if errors.Is(err, cluster.ErrEmptyResult) {
		logger.Warn("result has no clusters", "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, verr := range b.Invalid() {
		logger.Warn("entry dropped", "cluster", verr.Cluster, "value", verr.Value, "reason", verr.Reason)
	}
	if unknown := b.Unknown(); len(unknown) > 0 {
		logger.Debug("unknown result keys skipped", "keys", unknown)
	}
	logger.Debug("board ready", "result_id", b.ID(), "clusters", b.Len())
	return b, nil
}

func setup(ctx context.Context, file string, args []string) (*config.Config, *log.Logger, *rank.Board, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := buildSource(cfg, file, args)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := loadBoard(ctx, logger, src)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, b, nil
}

type showOptions struct {
	file       string
	grades     []string
	sort       string
	all        bool
	jsonOutput bool
}

func runShow(ctx context.Context, out io.Writer, opts showOptions) error {
	cfg, _, b, err := setup(ctx, opts.file, opts.grades)
	if err != nil {
		return err
	}
	if b == nil {
		return writeEmpty(out, opts.jsonOutput)
	}

	sortName := opts.sort
	if sortName == "" {
		sortName = cfg.Display.DefaultSort
	}
	mode, err := rank.ParseMode(sortName)
	if err != nil {
		return err
	}
	view, err := b.Order(mode)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(out, map[string]any{
			"result_id": b.ID(),
			"mode":      view.Mode,
			"clusters":  view.Rows(),
			"warning":   b.Warning(),
		})
	}

	fmt.Fprint(out, render.Notice(b.Warning()))
	fmt.Fprint(out, render.Table(view, opts.all || cfg.Display.ShowHidden))
	return nil
}

func runTop(ctx context.Context, out io.Writer, file string, args []string, n int, sendNotify, jsonOutput bool) error {
	cfg, logger, b, err := setup(ctx, file, args)
	if err != nil {
		return err
	}
	if b == nil {
		return writeEmpty(out, jsonOutput)
	}

	opts := cfg.Highlights.Options()
	if n > 0 {
		opts.N = n
	}
	top := b.Highlights(opts)

	if jsonOutput {
		if err := writeJSON(out, map[string]any{"result_id": b.ID(), "highlights": top}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, render.Highlights(top))
	}

	if !sendNotify {
		return nil
	}
	mgr := buildNotifier(cfg)
	if !mgr.HasNotifiers() {
		return errors.New("--notify: no notification destinations configured")
	}
	if err := mgr.Broadcast(ctx, notify.FromBoard(b, opts)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	logger.Info("highlights sent", "result_id", b.ID(), "count", len(top))
	return nil
}

func runDetail(ctx context.Context, out io.Writer, file, idArg string, args []string, jsonOutput bool) error {
	aggregate := strings.EqualFold(idArg, "aggregate")
	id := 0
	if !aggregate {
		var err error
		if id, err = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(strings.ToLower(idArg), "cluster"))); err != nil {
			return fmt.Errorf("invalid cluster id %q", idArg)
		}
	}

	_, _, b, err := setup(ctx, file, args)
	if err != nil {
		return err
	}
	if b == nil {
		return writeEmpty(out, jsonOutput)
	}

	if aggregate {
		agg := b.Aggregate()
		if jsonOutput {
			return writeJSON(out, map[string]any{
				"aggregate_points": agg.AggregatePoints,
				"detail":           b.AggregateDetail(),
				"method":           b.Method(),
			})
		}
		fmt.Fprint(out, render.Aggregate(agg.AggregatePoints, b.AggregateDetail()))
		fmt.Fprint(out, render.Method(b.Method()))
		return nil
	}

	d, err := b.SelectCluster(id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, d)
	}
	fmt.Fprint(out, render.Detail(d))
	return nil
}

// runReport writes the plain-text results report to path, or to out when
// path is empty.
func runReport(ctx context.Context, out io.Writer, file string, args []string, path string) error {
	cfg, logger, b, err := setup(ctx, file, args)
	if err != nil {
		return err
	}
	if b == nil {
		return writeEmpty(out, false)
	}

	if path == "" {
		return render.WriteReport(out, b, cfg.Highlights.Options(), time.Now())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := render.WriteReport(f, b, cfg.Highlights.Options(), time.Now()); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written", "path", path, "result_id", b.ID())
	return nil
}

func runBrowse(ctx context.Context, file string, args []string) error {
	cfg, _, b, err := setup(ctx, file, args)
	if err != nil {
		return err
	}
	if b == nil {
		fmt.Print(render.Empty())
		return nil
	}

	mode, err := cfg.Display.SortMode()
	if err != nil {
		return err
	}
	m, err := tui.New(b, mode, cfg.Highlights.Options(), cfg.Display.ShowHidden)
	if err != nil {
		return err
	}
	return tui.Run(m)
}

func runServe(ctx context.Context, port int, file string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	mode, err := cfg.Display.SortMode()
	if err != nil {
		return err
	}

	srv := server.New(buildClient(cfg), server.Options{
		Port:        port,
		DefaultSort: mode,
		Highlights:  cfg.Highlights.Options(),
	}, logger)

	if file != "" {
		p, err := scoring.NewFileSource(file).Fetch(ctx)
		if err != nil {
			return err
		}
		if _, err := srv.Deliver(p); err != nil {
			return fmt.Errorf("preload %s: %w", file, err)
		}
	}

	err = srv.ListenAndServe(ctx)
	logger.Info("server stopped")
	return err
}

func runMCP() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := cfg.Display.SortMode()
	if err != nil {
		return err
	}
	return mcp.Serve(mcp.NewServer(mcp.ServerConfig{
		Version:     version,
		DefaultSort: mode,
		Highlights:  cfg.Highlights.Options(),
	}))
}

func writeEmpty(out io.Writer, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(out, map[string]any{"error": cluster.ErrEmptyResult.Error()})
	}
	_, err := fmt.Fprint(out, render.Empty())
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
