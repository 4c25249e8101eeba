package gates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/config"
	"github.com/forzalog/lap-engine-go/pkg/ingest"
	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/telemetry"
	"github.com/forzalog/lap-engine-go/pkg/track"
	"github.com/forzalog/lap-engine-go/pkg/trackgen"
)

var (
	outFile       string
	spacing       float64
	width         float64
	trackName     string
	estimateWidth bool
	previewFile   string
	fromPcap      bool
	logLevel      string
)

//nolint:funlen // by design
func NewGatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gates <trace.json|capture.pcap>",
		Short: "builds a gate table from a recorded mapping lap",
		Long: `Builds the gate table for a track from one recorded lap. The input is
either a JSON driving line (array of {x,z,d,time} points) or, with
--from-pcap, a telemetry capture from which the line is extracted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGates(args[0])
		},
	}
	cmd.Flags().StringVarP(&outFile,
		"out",
		"o",
		"gates.json",
		"file the gate table is written to")
	cmd.Flags().Float64Var(&spacing,
		"spacing",
		trackgen.DefaultSpacing,
		"distance between gates in meters")
	cmd.Flags().Float64Var(&width,
		"width",
		trackgen.DefaultWidth,
		"track width in meters")
	cmd.Flags().StringVar(&trackName,
		"name",
		"",
		"track name stored in the gate table (input file name when empty)")
	cmd.Flags().BoolVar(&estimateWidth,
		"estimate-width",
		false,
		"estimate the track width from the calibration swerve instead of --width")
	cmd.Flags().StringVar(&previewFile,
		"preview",
		"",
		"write an HTML preview of the generated gates to this file")
	cmd.Flags().BoolVar(&fromPcap,
		"from-pcap",
		false,
		"treat the input as a pcap/pcapng telemetry capture")
	cmd.Flags().IntVar(&config.TelemetryPort,
		"port",
		9999,
		"UDP destination port carrying telemetry in the capture")
	cmd.Flags().StringVar(&logLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func runGates(input string) error {
	logger := log.DevLogger(
		os.Stderr,
		parseLogLevel(logLevel, log.InfoLevel),
		log.WithCaller(true),
		log.AddCallerSkip(1))
	log.ResetDefault(logger)

	points, err := loadPoints(input)
	if err != nil {
		return err
	}
	log.Info("Driving line loaded", log.String("file", input), log.Int("points", len(points)))

	if estimateWidth {
		estimated, widthErr := trackgen.EstimateWidth(points)
		if widthErr != nil {
			return fmt.Errorf("could not estimate track width: %w", widthErr)
		}
		log.Info("Estimated track width", log.Float64("width", estimated))
		width = estimated
	}

	name := trackName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}

	file, err := trackgen.BuildGateFile(points,
		trackgen.WithSpacing(spacing),
		trackgen.WithWidth(width),
		trackgen.WithName(name))
	if err != nil {
		return fmt.Errorf("could not build gate table: %w", err)
	}
	// a table the engine would refuse to load is not worth writing
	if _, err := track.FromGateFile(file); err != nil {
		return fmt.Errorf("generated gate table is unusable: %w", err)
	}

	if err := track.Save(outFile, file); err != nil {
		return err
	}
	log.Info("Gate table written",
		log.String("file", outFile),
		log.String("track", file.Name),
		log.Int("gates", len(file.Gates)),
		log.Float64("width", file.Width))

	if previewFile != "" {
		if err := writePreview(points, file); err != nil {
			return err
		}
		log.Info("Preview written", log.String("file", previewFile))
	}
	return nil
}

func loadPoints(input string) ([]trackgen.PathPoint, error) {
	if !fromPcap {
		return trackgen.LoadPath(input)
	}
	var points []trackgen.PathPoint
	err := ingest.WalkCapture(context.Background(), input, config.TelemetryPort,
		func(payload []byte, _ time.Time) error {
			sample, decodeErr := telemetry.Decode(payload)
			if decodeErr != nil {
				return nil //nolint:nilerr // foreign traffic in the capture is fine
			}
			if !sample.RaceOn() || !sample.HasExtended() || sample.PositionDegenerate() {
				return nil
			}
			points = append(points, trackgen.PathPoint{
				X:    float64(sample.PosX),
				Z:    float64(sample.PosZ),
				Dist: float64(sample.Distance),
				Time: float64(sample.CurrentRaceTime),
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func writePreview(points []trackgen.PathPoint, file *model.GateFile) error {
	f, err := os.Create(previewFile)
	if err != nil {
		return fmt.Errorf("could not create preview file: %w", err)
	}
	defer f.Close()
	return trackgen.RenderPreview(f, points, file)
}
