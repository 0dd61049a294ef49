package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ironsheep/color-tracker-mcp/internal/config"
	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/imaging"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
	"github.com/ironsheep/color-tracker-mcp/internal/tracking"
)

// runWatch selects a target on a reference image and replays a directory of
// frames through a tracking session, logging every fresh detection.
func runWatch(ctx context.Context, args []string, tuning *config.TuningConfig, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	refPath := fs.String("reference", "", "image to select the target from")
	regionArg := fs.String("region", "", "target region as x,y,width,height")
	framesDir := fs.String("frames", "", "directory of frames to replay in name order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refPath == "" || *regionArg == "" || *framesDir == "" {
		return errors.New("watch needs --reference, --region and --frames")
	}

	region, err := parseRegion(*regionArg)
	if err != nil {
		return err
	}

	refFrame, _, err := imaging.DecodeFrame(*refPath)
	if err != nil {
		return err
	}
	source, err := imaging.NewDirSource(*framesDir)
	if err != nil {
		return err
	}

	session := tracking.NewSession(tracking.Options{
		Cycle:            tuning.Cycle(),
		MinSelectionSize: tuning.GetMinSelectionSize(),
		Activator:        &logActivator{logger: logger},
		Sink:             logSink(logger),
		Logger:           logger,
	})
	if _, err := session.Select(refFrame, region); err != nil {
		return err
	}
	if err := session.Start(); err != nil {
		return err
	}

	logger.Info("replaying frames", "dir", *framesDir, "frames", source.Len())
	driver := &tracking.Driver{
		Session:  session,
		Source:   source,
		Interval: tuning.GetFrameInterval(),
		Logger:   logger,
	}
	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// parseRegion parses "x,y,width,height".
func parseRegion(s string) (signature.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return signature.Region{}, fmt.Errorf("region must be x,y,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return signature.Region{}, fmt.Errorf("invalid region value %q: %w", p, err)
		}
		v[i] = n
	}
	return signature.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// logSink logs fresh detections with their guidance message.
func logSink(logger *slog.Logger) tracking.Sink {
	return tracking.SinkFunc(func(u tracking.Update) {
		if !u.Fresh || u.Result == nil {
			return
		}
		logger.Info(tracking.GuidanceFor(u.Result).Message,
			"matched", u.Result.Matched,
			"confidence", u.Result.Confidence,
			"tier", u.Result.Tier,
			"ar_active", u.ARActive)
	})
}

// logActivator stands in for an AR runtime in replay mode.
type logActivator struct {
	logger      *slog.Logger
	activations int
}

func (a *logActivator) Activate(_ context.Context, trigger *detection.Result) error {
	a.activations++
	a.logger.Info("AR activated", "reference", trigger.ReferenceID, "confidence", trigger.Confidence)
	return nil
}

func (a *logActivator) Release() error {
	a.logger.Info("AR released")
	return nil
}
