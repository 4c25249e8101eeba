package replay

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/config"
	"github.com/forzalog/lap-engine-go/pkg/ingest"
	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/processing"
	"github.com/forzalog/lap-engine-go/pkg/processing/lap"
	"github.com/forzalog/lap-engine-go/pkg/publish"
	"github.com/forzalog/lap-engine-go/pkg/session"
	"github.com/forzalog/lap-engine-go/pkg/track"
	"github.com/forzalog/lap-engine-go/pkg/utils/broadcast"
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "feeds a recorded telemetry capture through the lap engine",
		Long: `Reads a pcap/pcapng capture of a telemetry session and processes it
as if it arrived live. With --speed 0 the capture is processed as fast
as possible, otherwise datagrams are paced by their capture timestamps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0])
		},
	}
	cmd.Flags().IntVar(&config.ReplaySpeed,
		"speed",
		0,
		"replay speed factor (0 means: go as fast as possible)")
	cmd.Flags().IntVar(&config.TelemetryPort,
		"port",
		9999,
		"UDP destination port carrying telemetry in the capture")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"file with levels per logger name, reloaded on change")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

//nolint:funlen,cyclop // by design
func runReplay(fileName string) error {
	var logger *log.Logger
	var telemetry *config.Telemetry
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		v := <-sigChan
		log.Debug("Got signal", log.Any("signal", v))
		cancel()
	}()

	if config.LogConfig != "" {
		if cfg, err := log.LoadConfig(config.LogConfig); err == nil {
			if applyErr := logger.ApplyConfig(cfg); applyErr != nil {
				log.Warn("Could not apply log config", log.ErrorField(applyErr))
			}
			go logger.WatchConfig(ctx, config.LogConfig)
		} else {
			log.Warn("Could not load log config",
				log.String("file", config.LogConfig), log.ErrorField(err))
		}
	}

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	table, err := loadGateTable()
	if err != nil {
		return err
	}

	store := session.NewStore(
		session.WithPlayer(config.Player),
		session.WithTrack(table.Name()))
	proc := processing.NewProcessor(
		processing.WithSegmenter(lap.NewSegmenter(table, lap.WithPlayer(config.Player))),
		processing.WithStore(store))

	lapBcst := broadcast.NewBroadcastServer(store.ID(), "laps", proc.LapSource())
	liveBcst := broadcast.NewBroadcastServer(store.ID(), "live", proc.SampleSource())

	var publisher *publish.NatsPublisher
	if config.NatsURL != "" {
		conn, connErr := nats.Connect(config.NatsURL)
		if connErr != nil {
			return fmt.Errorf("could not connect to nats at %s: %w", config.NatsURL, connErr)
		}
		publisher = publish.NewNatsPublisher(conn, store.ID(), lapBcst, liveBcst)
		log.Info("Publishing session",
			log.String("laps", publisher.LapSubject()),
			log.String("live", publisher.LiveSubject()))
	}

	replayer := ingest.NewReplayer(fileName, proc,
		ingest.WithPort(config.TelemetryPort),
		ingest.WithSpeed(config.ReplaySpeed))
	if err := replayer.Run(ctx); err != nil {
		return err
	}

	partial, hasPartial := proc.Flush()
	// the publisher must detach before the source channels close,
	// otherwise its subscriptions have nobody left to cancel them
	if publisher != nil {
		publisher.Close()
	}
	proc.Close()
	lapBcst.Close()
	liveBcst.Close()
	if telemetry != nil {
		telemetry.Shutdown()
	}

	printLapTable(os.Stdout, store, partial, hasPartial)
	return nil
}

func loadGateTable() (*track.GateTable, error) {
	if config.GateFile == "" {
		table := track.Default()
		log.Info("Using built-in gate table", log.String("track", table.Name()))
		return table, nil
	}
	table, err := track.Load(config.GateFile)
	if err != nil {
		return nil, fmt.Errorf("could not load gate table %s: %w", config.GateFile, err)
	}
	log.Info("Gate table loaded",
		log.String("file", config.GateFile),
		log.String("track", table.Name()),
		log.Int("gates", table.Len()))
	return table, nil
}

//nolint:errcheck // console output
func printLapTable(out *os.File, store *session.Store, partial *model.Lap, hasPartial bool) {
	summary := store.Summary()
	fmt.Fprintf(out, "\nSession %s  player=%s track=%s\n",
		summary.SessionID, summary.Player, summary.Track)

	w := tabwriter.NewWriter(out, 2, 2, 2, ' ', 0)
	fmt.Fprintln(w, "LAP\tTIME\tVALID\tGATES\tCORNERS\tNOTE")
	for _, l := range store.Laps() {
		printLapRow(w, l, "")
	}
	if hasPartial {
		printLapRow(w, partial, "in progress")
	}
	w.Flush()

	if best, ok := store.BestLap(); ok {
		fmt.Fprintf(out, "\nBest lap: %s (lap %d)\n",
			formatLapTime(best.LapTime), best.Number+1)
	} else {
		fmt.Fprintln(out, "\nNo valid laps.")
	}
}

//nolint:errcheck // console output
func printLapRow(w *tabwriter.Writer, l *model.Lap, note string) {
	valid := "yes"
	if l.Invalid {
		valid = "no"
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
		l.Number+1, formatLapTime(l.LapTime), valid,
		len(l.Crossings), len(l.Corners), note)
}

func formatLapTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	minutes := int(d.Minutes())
	rest := d - time.Duration(minutes)*time.Minute
	return fmt.Sprintf("%d:%06.3f", minutes, rest.Seconds())
}
