package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/pkg/capture"
	"github.com/vulntor/sslprint/pkg/config"
	"github.com/vulntor/sslprint/pkg/engine"
	"github.com/vulntor/sslprint/pkg/fingerprint"
	"github.com/vulntor/sslprint/pkg/flow"
	"github.com/vulntor/sslprint/pkg/logging"
	"github.com/vulntor/sslprint/pkg/output"
	"github.com/vulntor/sslprint/pkg/output/subscribers"
	"github.com/vulntor/sslprint/pkg/workspace"
)

type analyzeOptions struct {
	noColor bool
	store   bool
	runID   string
}

func newAnalyzeCommand() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:     "analyze <capture>...",
		Aliases: []string{"a"},
		Short:   "Fingerprint TLS clients in pcap or pcapng captures",
		Long: `Replay one or more capture files ("-" reads standard input) and print an
observation for every SSLv2 or SSLv3/TLS client hello found.`,
		Example: `  sslprint analyze traffic.pcapng
  sslprint analyze --ports 443,8443 --format json capture.pcap
  tcpdump -w - port 443 | sslprint analyze -`,
		GroupID: "analysis",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	config.BindCaptureFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Also store observations in the workspace database")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Tag observations with this run ID (default: random)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts analyzeOptions) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	logger := logging.Component("analyze")

	db, source, err := loadDatabase(ctx, cfg)
	if err != nil {
		return err
	}

	stream := output.NewStream()
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing outputs")
		}
	}()

	switch cfg.Output.Format {
	case "json":
		stream.Subscribe(subscribers.NewJSON(cmd.OutOrStdout(), logger))
	default:
		textOpts := []subscribers.TextOption{subscribers.WithColor(!opts.noColor)}
		if cfg.Output.OnlyMatched {
			textOpts = append(textOpts, subscribers.OnlyMatched())
		}
		stream.Subscribe(subscribers.NewText(cmd.OutOrStdout(), textOpts...))
	}

	sqlitePath := cfg.Output.SQLite
	if sqlitePath == "" && opts.store {
		ws, ok := workspace.FromContext(ctx)
		if !ok {
			return fingerprint.NewStorageDisabledError()
		}
		sqlitePath = workspace.ObservationsDB(ws)
	}
	if sqlitePath != "" {
		store, err := subscribers.NewSQLite(sqlitePath, logger)
		if err != nil {
			return err
		}
		stream.Subscribe(store)
	}

	engineOpts := []engine.Option{engine.WithLogger(log.Logger)}
	if opts.runID != "" {
		engineOpts = append(engineOpts, engine.WithRunID(opts.runID))
	}
	if cfg.Output.Telemetry != "" {
		tw, err := fingerprint.NewTelemetryWriter(cfg.Output.Telemetry)
		if err != nil {
			return err
		}
		defer func() { _ = tw.Close() }()
		engineOpts = append(engineOpts, engine.WithTelemetry(tw))
	}
	eng := engine.New(db, stream, engineOpts...)

	capCfg := captureConfig(cfg.Capture)
	logger.Info().
		Str("run_id", eng.RunID()).
		Str("database", source).
		Int("signatures", db.Len()).
		Ints("ports", cfg.Capture.Ports).
		Msg("analysis started")

	var total capture.Stats
	started := time.Now()
	for _, name := range args {
		stats, err := replayFile(cmd, name, capCfg, eng)
		if err != nil {
			return err
		}
		total.Packets += stats.Packets
		total.Segments += stats.Segments
		total.Hellos += stats.Hellos
		total.NotSSL += stats.NotSSL
		total.Dropped += stats.Dropped
		total.Expired += stats.Expired
	}

	logger.Info().
		Str("run_id", eng.RunID()).
		Int("files", len(args)).
		Int("packets", total.Packets).
		Int("hellos", total.Hellos).
		Int("not_ssl", total.NotSSL).
		Int("dropped", total.Dropped).
		Dur("elapsed", time.Since(started)).
		Msg("analysis complete")
	return nil
}

func replayFile(cmd *cobra.Command, name string, cfg capture.Config, proc capture.Processor) (capture.Stats, error) {
	var r io.Reader
	if name == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return capture.Stats{}, fmt.Errorf("open capture: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	stats, err := capture.NewReplayer(cfg, proc, log.Logger).Replay(cmd.Context(), r)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", name, err)
	}
	return stats, nil
}

func captureConfig(c config.CaptureConfig) capture.Config {
	ports := make([]uint16, 0, len(c.Ports))
	for _, p := range c.Ports {
		ports = append(ports, uint16(p))
	}
	return capture.Config{
		Ports: ports,
		Tracker: flow.TrackerConfig{
			MaxData:  c.MaxFlowData,
			MaxFlows: c.MaxFlows,
			TTL:      c.FlowTTL,
		},
	}
}
