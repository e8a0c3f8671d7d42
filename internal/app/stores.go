package app

import (
	"context"
	"fmt"

	"greycells/internal/output"
)

func (a *App) openStore(ctx context.Context) (output.Store, error) {
	cfg := a.cfg.Output
	switch cfg.Store {
	case "memory":
		return output.NewMemoryStore(), nil
	case "file":
		s, err := output.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("app: output dir: %w", err)
		}
		a.logger.Printf("output store: file root=%s", s.Root)
		return s, nil
	case "s3":
		s, err := output.NewS3Store(output.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.logger.Printf("output store: s3 bucket=%s endpoint=%s", cfg.S3.Bucket, cfg.S3.Endpoint)
		return output.NewCachedStore(s, output.DefaultCacheConfig()), nil
	case "postgres":
		db, err := output.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.logger.Printf("output store: postgres")
		return output.NewCachedStore(output.NewPostgresStore(db), output.DefaultCacheConfig()), nil
	}
	return nil, fmt.Errorf("app: unknown output store %q", cfg.Store)
}
