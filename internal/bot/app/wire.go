package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/dmitrijs2005/profilebot/internal/bot/auth"
	"github.com/dmitrijs2005/profilebot/internal/bot/catalog"
	"github.com/dmitrijs2005/profilebot/internal/bot/config"
	"github.com/dmitrijs2005/profilebot/internal/bot/metrics"
	"github.com/dmitrijs2005/profilebot/internal/bot/mirror"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/bot/oss"
	"github.com/dmitrijs2005/profilebot/internal/bot/repackage"
	"github.com/dmitrijs2005/profilebot/internal/bot/repositories/items"
	"github.com/dmitrijs2005/profilebot/internal/bot/upload"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// NewApp logs in and assembles the pipeline. Login failures are fatal.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	clk := clock.Real()

	printers, err := upload.LoadPrinterTable(c.PrintersFile)
	if err != nil {
		return nil, err
	}

	repo, err := openCatalog(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	session := auth.NewSession(auth.Options{
		IDBaseURL:    c.IDBaseURL,
		CloudBaseURL: c.CloudBaseURL,
		ClientID:     c.ClientID,
		UserAgent:    c.UserAgent,
		DUID:         c.DUID,
		Platform:     c.Platform,
		Locale:       c.Locale,
		Lang:         c.Lang,
		Timezone:     c.Timezone,
		Timeout:      c.RequestTimeout,
		Clock:        clk,
		Logger:       logger,
	})
	creds, err := session.Login(ctx, c.Account, c.Password)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	if exp, ok := auth.TokenExpiry(creds.Token); ok {
		logger.Debug(ctx, "identity token", "expires", exp)
	}
	logger.Info(ctx, "logged in", "user_id", creds.UserID, "model_token", creds.HasModelToken())

	cat := catalog.New(catalog.Options{
		BaseURL:         c.CloudBaseURL,
		Credentials:     creds,
		Platform:        c.Platform,
		Timezone:        c.Timezone,
		DownloadTimeout: c.UploadTimeout,
		Logger:          logger,
	})

	store := oss.NewClient(oss.Options{
		HTTPClient:     &http.Client{Timeout: c.UploadTimeout},
		Credentials:    storageProvider(ctx, c, creds, cat, clk, logger),
		Clock:          clk,
		Logger:         logger,
		ModelBucket:    oss.Bucket{Name: c.OSSModelBucket, BaseURL: c.OSSModelBaseURL},
		ImageBucket:    oss.Bucket{Name: c.OSSImageBucket, BaseURL: c.OSSImageBaseURL},
		CDNBaseURL:     c.CDNImageBaseURL,
		UserAgent:      c.UserAgent,
		Origin:         c.CloudBaseURL,
		SendContentMD5: c.SendContentMD5,
	})

	prom := metrics.NewProm()

	var mir upload.Mirror
	if c.MirrorBucket != "" {
		m, err := mirror.New(ctx, mirror.Options{
			Bucket:    c.MirrorBucket,
			Region:    c.MirrorRegion,
			Endpoint:  c.MirrorEndpoint,
			AccessKey: c.MirrorAccessKey,
			SecretKey: c.MirrorSecretKey,
			Logger:    logger,
		})
		if err != nil {
			repo.Close()
			return nil, err
		}
		mir = m
	}

	return &App{
		config:  c,
		logger:  logger,
		clock:   clk,
		catalog: cat,
		items:   repo,
		repackager: repackage.New(repackage.Options{
			WorkDir:      c.WorkDir,
			TemplatesDir: c.TemplatesDir,
			Clock:        clk,
			Logger:       logger,
		}),
		uploader: upload.New(upload.Options{
			Storage:   store,
			Registrar: cat,
			Printers:  printers,
			Delay:     c.UploadDelay,
			Clock:     clk,
			Mirror:    mir,
			Metrics:   prom,
			Logger:    logger,
		}),
		metrics: prom,
	}, nil
}

// openCatalog opens the configured store. An empty SQLite store is seeded
// from CatalogImport when set.
func openCatalog(ctx context.Context, c *config.Config, logger logging.Logger) (items.Repository, error) {
	if c.CatalogDriver != "sqlite" {
		return items.OpenJSON(c.CatalogPath, logger)
	}

	repo, err := items.OpenSQLite(ctx, c.CatalogPath)
	if err != nil {
		return nil, err
	}
	if c.CatalogImport == "" {
		return repo, nil
	}

	counts, err := repo.Counts(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if counts.Total > 0 {
		return repo, nil
	}

	legacy, err := items.OpenJSON(c.CatalogImport, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}
	all, _ := legacy.All(ctx)
	if err := repo.Import(ctx, all); err != nil {
		repo.Close()
		return nil, fmt.Errorf("import %s: %w", c.CatalogImport, err)
	}
	logger.Info(ctx, "catalog imported", "from", c.CatalogImport, "items", len(all))
	return repo, nil
}

// storageProvider returns the configured static key, or a broker asking
// the platform for temporary keys.
func storageProvider(ctx context.Context, c *config.Config, creds *models.Credentials, f oss.CredentialsFetcher, clk clock.Clock, logger logging.Logger) aws.CredentialsProvider {
	if c.OSSAccessKeyID != "" && c.OSSAccessKeySecret != "" {
		logger.Info(ctx, "using static storage key")
		return credentials.NewStaticCredentialsProvider(c.OSSAccessKeyID, c.OSSAccessKeySecret, "")
	}
	if c.OSSAccessKeyID != "" || c.OSSAccessKeySecret != "" {
		logger.Warn(ctx, "static storage key incomplete, using temporary keys")
	}
	return oss.NewBroker(creds, f, clk, logger)
}
