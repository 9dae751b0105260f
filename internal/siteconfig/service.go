// Package siteconfig manages the singleton site configuration document with
// lazy creation: readers and writers both go through GetOrCreate so default
// construction lives in exactly one place.
package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPageNotFound indicates an unknown custom page key on update.
var ErrPageNotFound = errors.New("custom page not found")

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "siteconfig")),
	}
}

// GetOrCreate returns the singleton configuration, inserting the defaults
// on first access.
func (s *Service) GetOrCreate(ctx context.Context) (SiteConfig, error) {
	cfg, err := s.get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return SiteConfig{}, err
	}

	cfg = Defaults()
	cfg.LastUpdated = time.Now().UTC()
	if err := s.save(ctx, cfg); err != nil {
		return SiteConfig{}, err
	}
	s.logger.Info("site configuration created with defaults")
	return cfg, nil
}

// Update merges the provided sections into the configuration. Last writer
// wins per section.
func (s *Service) Update(ctx context.Context, input UpdateInput) (SiteConfig, error) {
	cfg, err := s.GetOrCreate(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	if input.VideoURL != nil {
		cfg.VideoURL = *input.VideoURL
	}
	if input.HomeHeroText != nil {
		cfg.HomeHeroText = *input.HomeHeroText
	}
	if input.ContactInfo != nil {
		cfg.ContactInfo = *input.ContactInfo
	}
	if input.SocialMedia != nil {
		cfg.SocialMedia = *input.SocialMedia
	}
	if input.SEO != nil {
		cfg.SEO = *input.SEO
	}
	cfg.LastUpdated = time.Now().UTC()
	if err := s.save(ctx, cfg); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// SetVideoURL overwrites the singleton video URL unconditionally.
func (s *Service) SetVideoURL(ctx context.Context, url string) (SiteConfig, error) {
	cfg, err := s.GetOrCreate(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	cfg.VideoURL = url
	cfg.LastUpdated = time.Now().UTC()
	if err := s.save(ctx, cfg); err != nil {
		return SiteConfig{}, err
	}
	s.logger.Info("site video updated", slog.String("url", url))
	return cfg, nil
}

// UpsertCustomPage creates or replaces the page stored under key.
func (s *Service) UpsertCustomPage(ctx context.Context, key string, page CustomPage) (SiteConfig, error) {
	cfg, err := s.GetOrCreate(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	if cfg.CustomPages == nil {
		cfg.CustomPages = map[string]CustomPage{}
	}
	page.LastUpdated = time.Now().UTC()
	cfg.CustomPages[key] = page
	cfg.LastUpdated = time.Now().UTC()
	if err := s.save(ctx, cfg); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func (s *Service) get(ctx context.Context) (SiteConfig, error) {
	var cfg SiteConfig
	var contact, social, seo, pages []byte
	err := s.pool.QueryRow(ctx, `
		SELECT video_url, home_hero_text, contact_info, social_media, seo,
		       custom_pages, last_updated
		FROM site_config WHERE id = 1`).
		Scan(&cfg.VideoURL, &cfg.HomeHeroText, &contact, &social, &seo,
			&pages, &cfg.LastUpdated)
	if err != nil {
		return SiteConfig{}, err
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{contact, &cfg.ContactInfo},
		{social, &cfg.SocialMedia},
		{seo, &cfg.SEO},
		{pages, &cfg.CustomPages},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return SiteConfig{}, fmt.Errorf("decode site config: %w", err)
		}
	}
	if cfg.CustomPages == nil {
		cfg.CustomPages = map[string]CustomPage{}
	}
	return cfg, nil
}

func (s *Service) save(ctx context.Context, cfg SiteConfig) error {
	contact, err := json.Marshal(cfg.ContactInfo)
	if err != nil {
		return fmt.Errorf("encode contact info: %w", err)
	}
	social, err := json.Marshal(cfg.SocialMedia)
	if err != nil {
		return fmt.Errorf("encode social media: %w", err)
	}
	seo, err := json.Marshal(cfg.SEO)
	if err != nil {
		return fmt.Errorf("encode seo: %w", err)
	}
	pages, err := json.Marshal(cfg.CustomPages)
	if err != nil {
		return fmt.Errorf("encode custom pages: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO site_config (id, video_url, home_hero_text, contact_info,
		                         social_media, seo, custom_pages, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			video_url = EXCLUDED.video_url,
			home_hero_text = EXCLUDED.home_hero_text,
			contact_info = EXCLUDED.contact_info,
			social_media = EXCLUDED.social_media,
			seo = EXCLUDED.seo,
			custom_pages = EXCLUDED.custom_pages,
			last_updated = EXCLUDED.last_updated`,
		cfg.VideoURL, cfg.HomeHeroText, contact, social, seo, pages, cfg.LastUpdated)
	if err != nil {
		return fmt.Errorf("save site config: %w", err)
	}
	return nil
}
