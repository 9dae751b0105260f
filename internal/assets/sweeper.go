package assets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vexport/vexport/internal/remotestore"
	"github.com/vexport/vexport/internal/siteconfig"
)

// ReferenceSource reports every remote object key currently referenced by
// vehicle records.
type ReferenceSource interface {
	ReferencedRemoteIDs(ctx context.Context) (map[string]bool, error)
}

// VideoSource exposes the singleton configuration holding the site video URL.
type VideoSource interface {
	GetOrCreate(ctx context.Context) (siteconfig.SiteConfig, error)
}

// Sweeper periodically diffs the remote store against the references held in
// the database and reports unreferenced objects. The synchronous pipeline
// deliberately leaves orphans behind on attach failure; this is the separate
// maintenance component that finds them. Generic media is exempt: its remote
// listing IS its index, so nothing under that prefix can be an orphan.
type Sweeper struct {
	remote        remotestore.Store
	refs          ReferenceSource
	video         VideoSource
	listLimit     int
	deleteOrphans bool
	schedule      string
	cron          *cron.Cron
	logger        *slog.Logger
}

type SweeperOptions struct {
	Schedule      string
	ListLimit     int
	DeleteOrphans bool
}

func NewSweeper(log *slog.Logger, remote remotestore.Store, refs ReferenceSource, video VideoSource, opts SweeperOptions) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	limit := opts.ListLimit
	if limit <= 0 {
		limit = 100
	}
	return &Sweeper{
		remote:        remote,
		refs:          refs,
		video:         video,
		listLimit:     limit,
		deleteOrphans: opts.DeleteOrphans,
		schedule:      opts.Schedule,
		logger:        log.With(slog.String("service", "sweeper")),
	}
}

// Start registers the cron job. Returns an error for an invalid schedule.
func (s *Sweeper) Start() error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		orphans, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("sweep failed", slog.Any("error", err))
			return
		}
		s.logger.Info("sweep completed", slog.Int("orphans", len(orphans)))
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("sweep scheduled", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron scheduler.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep lists the managed prefixes, diffs against database references and
// returns the orphans. When configured, orphans are also deleted; the
// default is report-only.
func (s *Sweeper) Sweep(ctx context.Context) ([]remotestore.RemoteAsset, error) {
	if err := s.remote.HealthCheck(ctx); err != nil {
		return nil, err
	}

	referenced, err := s.refs.ReferencedRemoteIDs(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.video.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []remotestore.RemoteAsset
	for _, prefix := range []string{"vehicles/", "videos/"} {
		listed, err := s.remote.List(ctx, prefix, s.listLimit)
		if err != nil {
			return nil, err
		}
		for _, asset := range listed {
			if referenced[asset.ObjectID] || (cfg.VideoURL != "" && asset.URL == cfg.VideoURL) {
				continue
			}
			orphans = append(orphans, asset)
		}
	}

	for _, orphan := range orphans {
		s.logger.Warn("unreferenced remote asset",
			slog.String("key", orphan.ObjectID),
			slog.Int64("bytes", orphan.Size))
		if !s.deleteOrphans {
			continue
		}
		if err := s.remote.Delete(ctx, orphan.ObjectID); err != nil {
			s.logger.Error("orphan delete failed",
				slog.String("key", orphan.ObjectID), slog.Any("error", err))
		}
	}
	return orphans, nil
}
