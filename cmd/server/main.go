package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminhandler "photoportal/internal/admin/handler"
	adminservice "photoportal/internal/admin/service"
	"photoportal/internal/apilog"
	authhandler "photoportal/internal/auth/handler"
	authservice "photoportal/internal/auth/service"
	authstore "photoportal/internal/auth/store"
	"photoportal/internal/auth/token"
	"photoportal/internal/dns"
	photohandler "photoportal/internal/photo/handler"
	photometrics "photoportal/internal/photo/metrics"
	photoservice "photoportal/internal/photo/service"
	photostore "photoportal/internal/photo/store"
	"photoportal/internal/platform/config"
	"photoportal/internal/platform/database"
	"photoportal/internal/platform/health"
	"photoportal/internal/platform/httpserver"
	"photoportal/internal/platform/logger"
	"photoportal/internal/quota"
	"photoportal/internal/seeder"
	"photoportal/internal/storage"
	"photoportal/internal/storage/credentials"
	tenanthandler "photoportal/internal/tenant/handler"
	tenantmetrics "photoportal/internal/tenant/metrics"
	"photoportal/internal/tenant/resolver"
	tenantservice "photoportal/internal/tenant/service"
	tenantstore "photoportal/internal/tenant/store"
	transport "photoportal/internal/transport/http"
)

func main() {
	log := logger.New()

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := database.New(database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: database.DefaultConfig().ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck

	memoryMode := pool == nil
	if !memoryMode {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := pool.Migrate(migrateCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	var (
		tenants   tenantstore.Store
		users     authstore.Store
		photos    photostore.Store
		usage     photostore.UsageStore
		credStore credentials.Store
		logStore  apilog.Store
	)
	if memoryMode {
		log.Info("no database configured, using in-memory stores")
		tenants = tenantstore.NewInMemory()
		users = authstore.NewInMemory()
		photos = photostore.NewInMemory()
		usage = photostore.NewUsageInMemory()
		credStore = credentials.NewInMemory()
		logStore = apilog.NewInMemory()
	} else {
		db := pool.DB()
		tenants = tenantstore.NewPostgres(db)
		users = authstore.NewPostgres(db)
		photos = photostore.NewPostgres(db)
		usage = photostore.NewUsagePostgres(db)
		credStore = credentials.NewPostgres(db)
		logStore = apilog.NewPostgres(db)
	}

	issuer, err := token.NewIssuer(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	var dnsProvider dns.Provider = dns.Noop{}
	if cfg.DNS.APIToken != "" && cfg.DNS.ZoneID != "" {
		dnsProvider = dns.NewCloudflare(dns.CloudflareConfig{
			APIToken:   cfg.DNS.APIToken,
			ZoneID:     cfg.DNS.ZoneID,
			BaseDomain: cfg.DNS.BaseDomain,
		}, log)
	}

	fallback := storage.Credentials{
		KeyID:    cfg.Storage.KeyID,
		Key:      cfg.Storage.Key,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: cfg.Storage.Endpoint,
	}
	var build storage.BuildFunc
	if memoryMode {
		// One shared bucket so presigned URLs stay resolvable across tenants.
		shared := storage.NewInMemory(cfg.Storage.Bucket)
		build = func(storage.Credentials) (storage.ObjectStore, error) {
			return shared, nil
		}
	}
	provider := storage.NewProvider(credStore, fallback, build, log)

	tm := tenantmetrics.New()
	accountant := quota.New(tenants, log)
	authSvc := authservice.NewAuthService(users, issuer, log)
	tenantSvc := tenantservice.NewTenantService(
		tenants, users, photos, usage, provider, authSvc, dnsProvider,
		tenantservice.Defaults{
			StorageLimitMB: cfg.Tenant.DefaultStorageLimitMB,
			ExpiryDays:     cfg.Tenant.DefaultExpiryDays,
		},
		log,
		tenantservice.WithMetrics(tm),
	)
	photoSvc := photoservice.NewPhotoService(
		photos, usage, accountant, provider, log,
		photoservice.WithMetrics(photometrics.New()),
	)
	adminSvc := adminservice.NewAdminService(tenants, users, photos, credStore, provider, logStore, nil, log)

	tenantResolver := resolver.New(tenants, log, resolver.WithMetrics(tm))

	healthHandler := health.New()
	if !memoryMode {
		healthHandler.RegisterCheck("database", pool.Health)
	}

	if memoryMode {
		if err := seeder.New(authSvc, tenantSvc, log).Seed(context.Background()); err != nil {
			return err
		}
	}

	router := transport.NewRouter(transport.Deps{
		Logger:         log,
		Issuer:         issuer,
		Resolver:       tenantResolver,
		Health:         healthHandler,
		APILogs:        logStore,
		Auth:           authhandler.New(authSvc, log),
		Tenant:         tenanthandler.New(tenantSvc, log),
		Photo:          photohandler.New(photoSvc, tenantResolver, log),
		Admin:          adminhandler.New(tenantSvc, adminSvc, authSvc, photoSvc, log),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
