package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/fuelmix/infrastructure/eia"
	fuelisone "windfarm-impact/internal/fuelmix/infrastructure/isone"
	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/generation/infrastructure/sam"
	"windfarm-impact/internal/generation/infrastructure/ver"
	pricing "windfarm-impact/internal/pricing/domain"
	priceisone "windfarm-impact/internal/pricing/infrastructure/isone"
)

// SnapshotSource provides sub-hourly grid fuel mix readings.
type SnapshotSource interface {
	Load(ctx context.Context) ([]fuelmix.DispatchSnapshot, error)
}

// PriceSource provides hourly prices for one pricing node.
type PriceSource interface {
	Load(ctx context.Context) ([]pricing.Record, error)
}

// GenerationSource provides the new resource's hourly profile.
type GenerationSource interface {
	Load(ctx context.Context) (generation.Profile, error)
}

// SnapshotSourceFunc adapts a function to SnapshotSource.
type SnapshotSourceFunc func(ctx context.Context) ([]fuelmix.DispatchSnapshot, error)

// Load calls f.
func (f SnapshotSourceFunc) Load(ctx context.Context) ([]fuelmix.DispatchSnapshot, error) {
	return f(ctx)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context) ([]pricing.Record, error)

// Load calls f.
func (f PriceSourceFunc) Load(ctx context.Context) ([]pricing.Record, error) {
	return f(ctx)
}

// GenerationSourceFunc adapts a function to GenerationSource.
type GenerationSourceFunc func(ctx context.Context) (generation.Profile, error)

// Load calls f.
func (f GenerationSourceFunc) Load(ctx context.Context) (generation.Profile, error) {
	return f(ctx)
}

// Sources bundles the three data providers.
type Sources struct {
	Grid       SnapshotSource
	Prices     PriceSource
	Generation GenerationSource
}

// BuildSources wires the providers named in cfg.
func BuildSources(cfg Config, logger logrus.FieldLogger) (Sources, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var (
		src Sources
		err error
	)

	switch cfg.Input.GridSource {
	case GridSourceISONE:
		src.Grid, err = fuelisone.NewLoader(cfg.Input.FuelMixDir, logger)
		if err != nil {
			return Sources{}, err
		}
	case GridSourceEIA:
		// The client is built on first use so cached runs need no API key.
		input := cfg.Input
		src.Grid = SnapshotSourceFunc(func(ctx context.Context) ([]fuelmix.DispatchSnapshot, error) {
			opts := []eia.Option{
				eia.WithLogger(logger),
				eia.WithConcurrency(input.EIAConcurrency),
			}
			if input.EIABaseURL != "" {
				opts = append(opts, eia.WithBaseURL(input.EIABaseURL))
			}
			client, err := eia.NewClient(input.EIAAPIKey, opts...)
			if err != nil {
				return nil, err
			}
			return client.FetchYear(ctx, input.Year)
		})
	default:
		return Sources{}, fmt.Errorf("%w: grid %q", ErrUnknownSource, cfg.Input.GridSource)
	}

	src.Prices, err = priceisone.NewLoader(cfg.Input.LMPDir, cfg.Input.LocationID, logger)
	if err != nil {
		return Sources{}, err
	}

	switch cfg.Input.GenerationSource {
	case GenerationSourceSAM:
		path := cfg.Input.SAMFile
		genLogger := logger.WithField("source", "sam")
		src.Generation = GenerationSourceFunc(func(ctx context.Context) (generation.Profile, error) {
			if err := ctx.Err(); err != nil {
				return generation.Profile{}, err
			}
			return sam.LoadFile(path, genLogger)
		})
	case GenerationSourceVER:
		if cfg.Input.VERFile == "" {
			return Sources{}, errors.New("impact config: ver_file required")
		}
		path := cfg.Input.VERFile
		opts := ver.DefaultOptions()
		if cfg.Input.VERColumn != "" {
			opts.Column = cfg.Input.VERColumn
		}
		nameplate := cfg.Site.NameplateMW
		genLogger := logger.WithField("source", "ver")
		src.Generation = GenerationSourceFunc(func(ctx context.Context) (generation.Profile, error) {
			if err := ctx.Err(); err != nil {
				return generation.Profile{}, err
			}
			speeds, err := ver.LoadFile(path, opts, genLogger)
			if err != nil {
				return generation.Profile{}, err
			}
			return generation.EstimateFromWindSpeed(speeds, nameplate)
		})
	default:
		return Sources{}, fmt.Errorf("%w: generation %q", ErrUnknownSource, cfg.Input.GenerationSource)
	}
	return src, nil
}
