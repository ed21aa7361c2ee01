// rep-lookup server: reads configuration, wires the lookup pipeline and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"rep-lookup/internal/api"
	"rep-lookup/internal/census"
	"rep-lookup/internal/config"
	"rep-lookup/internal/dataset"
	"rep-lookup/internal/federal"
	"rep-lookup/internal/ipgeo"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/middleware"
	"rep-lookup/internal/migrate"
	"rep-lookup/internal/resolve"
	"rep-lookup/internal/statelegis"
	"rep-lookup/internal/store"
	"rep-lookup/internal/territory"
	"rep-lookup/internal/utils"
	"rep-lookup/internal/version"
)

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	cfg := config.FromEnv()
	l.Info("startup", "commit", version.Commit, "addr", cfg.Addr, "api_base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := openRedis(ctx, l)
	if rc != nil {
		defer rc.Close()
	}

	geocoder := census.NewCached(
		census.New(cfg.CensusBase,
			census.WithTimeout(cfg.GeocodeTimeout),
			census.WithBenchmark(cfg.CensusBenchmark, cfg.CensusVintage),
		),
		rc, cfg.GeocodeCacheTTL,
	)
	fed := federal.New(dataset.NewLocator(""), cfg.FederalRosterURL, cfg.FederalOfficesURL,
		dataset.WithTimeout(cfg.DatasetTimeout))
	sl := statelegis.New(dataset.NewLocator(cfg.StateDataBase), dataset.WithTimeout(cfg.DatasetTimeout))
	orch := resolve.New(geocoder, territory.Default(), fed, sl)

	deps := api.Deps{Resolver: orch, Offices: fed, Redis: rc, OfficesWait: cfg.OfficesWait}

	if cfg.GeoIPCityPath != "" {
		loc, err := ipgeo.Open(cfg.GeoIPCityPath)
		if err != nil {
			l.Error("geoip_open_error", "err", err)
		} else {
			defer loc.Close()
			deps.IPLocator = loc
		}
	}

	if utils.PostgresEnabled() {
		st, err := openStats(ctx)
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer st.Close()
		deps.Stats = st
		l.Info("db_open_ok")
	} else {
		l.Info("stats_disabled")
	}

	allow, err := middleware.ParseAllowList(cfg.AdminAllow, cfg.AdminRealIPHeader)
	if err != nil {
		l.Error("config_admin_allow_error", "err", err)
		os.Exit(1)
	}
	deps.AdminGuard = allow.Guard

	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(l))
	r.Route(cfg.APIBase, api.New(deps).Register)

	handler := middleware.Wrap(r, middleware.Options{
		EdgeLatHeader: cfg.EdgeLatHeader,
		EdgeLonHeader: cfg.EdgeLonHeader,
		RateLimitQPS:  rateLimit(cfg),
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.TLSEnable {
			if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "rep-lookup.local"); err != nil {
				return err
			}
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			l.Info("listening", "addr", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutdown")
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}

// openRedis returns nil when Redis is not configured or unreachable; the geocode cache and the
// visitor filter are both skipped without it.
func openRedis(ctx context.Context, l *slog.Logger) *redis.Client {
	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		_ = rc.Close()
		return nil
	}
	l.Info("redis_ping_ok")
	return rc
}

func openStats(ctx context.Context) (*store.Store, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate.EnsureSchema(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.AttachDB(db), nil
}

func rateLimit(cfg config.Config) int {
	if !cfg.RateLimitEnabled {
		return 0
	}
	return cfg.RateLimitQPS
}
