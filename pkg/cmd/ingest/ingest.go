package ingest

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/config"
	"github.com/forzalog/lap-engine-go/pkg/ingest"
	"github.com/forzalog/lap-engine-go/pkg/processing"
	"github.com/forzalog/lap-engine-go/pkg/processing/lap"
	"github.com/forzalog/lap-engine-go/pkg/publish"
	"github.com/forzalog/lap-engine-go/pkg/session"
	"github.com/forzalog/lap-engine-go/pkg/track"
	"github.com/forzalog/lap-engine-go/pkg/utils/broadcast"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "listens for telemetry datagrams and segments laps",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest()
		},
	}
	cmd.Flags().StringVarP(&config.ListenAddr,
		"listen-addr",
		"a",
		"0.0.0.0:9999",
		"UDP address the game sends telemetry to")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
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
	cmd.Flags().BoolVar(&appConfig.PrintSamples,
		"print-samples",
		false,
		"if true and log level is debug, every decoded sample is printed")
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
func runIngest() error {
	var telemetry *config.Telemetry
	logger := setupLogger()
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
		processing.WithStore(store),
		processing.WithPrintSamples(appConfig.PrintSamples))

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

	setupGoRoutinesDump()
	log.Info("Engine started",
		log.String("session", store.ID()),
		log.String("player", config.Player),
		log.String("track", table.Name()),
		log.String("addr", config.ListenAddr))

	listener := ingest.NewListener(config.ListenAddr, proc)
	if err := listener.Run(ctx); err != nil {
		log.Error("Listener failed", log.ErrorField(err))
		return err
	}

	if partial, ok := proc.Flush(); ok {
		store.AddLap(partial)
	}
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

	summary := store.Summary()
	log.Info("Session finished",
		log.String("session", summary.SessionID),
		log.Int("laps", summary.Laps),
		log.Int("valid", summary.ValidLaps),
		log.Float64("bestLap", summary.BestLap))
	return nil
}

func setupLogger() *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
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
		log.Int("gates", table.Len()),
		log.Float64("length", table.TrackLength()))
	return table, nil
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
