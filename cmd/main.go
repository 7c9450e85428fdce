// 程序入口：读取配置、加载名称树与平铺数据、启动地址查询服务；路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"addr-geo/internal/api"
	"addr-geo/internal/geodata"
	"addr-geo/internal/geotree"
	"addr-geo/internal/logger"
	"addr-geo/internal/metrics"
	"addr-geo/internal/middleware"
	"addr-geo/internal/migrate"
	"addr-geo/internal/refresh"
	"addr-geo/internal/resolver"
	"addr-geo/internal/store"
	"addr-geo/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	apiBase := utils.Getenv("API_BASE", "/api")
	source := utils.Getenv("GEO_SOURCE", "file")
	l.Debug("config", "api_base", apiBase, "source", source)

	var st *store.Store
	if source == "pg" {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(context.Background(), db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	}
	load := func(ctx context.Context) (*resolver.Resolver, error) {
		if st != nil {
			return loadFromStore(ctx, st)
		}
		return loadFromFiles(ctx, utils.Getenv("GEO_INPUT_DIR", "files"), utils.Getenv("GEO_ARTIFACT", filepath.Join("data", "addresses.json")))
	}

	var holder api.Holder
	res, err := load(context.Background())
	if err != nil {
		l.Error("geo_load_error", "err", err)
		os.Exit(1)
	}
	if err := holder.Set(res); err != nil {
		l.Error("geo_load_error", "err", err)
		os.Exit(1)
	}
	st0 := res.Tree().Stats()
	l.Info("geo_ready", "provinces", st0.Provinces, "districts", st0.Districts, "communes", st0.Communes, "villages", st0.Villages)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	ttl := time.Duration(utils.GetenvInt("OPTIONS_CACHE_TTL_S", 3600)) * time.Second
	apiMux := api.BuildRoutes(&holder, rc, api.Options{
		DefaultLang: resolver.ParseLang(utils.Getenv("GEO_DEFAULT_LANG", "en")),
		CacheTTL:    ttl,
		LocalCache:  api.NewLRU(utils.GetenvInt("LOCAL_CACHE_SIZE", 4096), ttl),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		Reload:      load,
	})
	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	addr := utils.Getenv("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if utils.GetenvBool("GEO_REFRESH_WEEKLY", false) {
		refresh.StartWeekly(ctx, refresh.Location(), refresh.ParseHour(os.Getenv("GEO_REFRESH_HOUR"), refresh.DefaultHour), func(ctx context.Context) error {
			res, err := load(ctx)
			if err != nil {
				return err
			}
			return holder.Set(res)
		})
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if utils.GetenvBool("TLS_ENABLE", false) {
		certPath := utils.Getenv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.Getenv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "addr-geo.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("listen_error", "err", err)
			os.Exit(1)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}

// loadFromFiles：平铺数据来自输入目录；产物存在时读取产物，否则在内存中直接构建（节点携带编码）
func loadFromFiles(ctx context.Context, inputDir, artifact string) (*resolver.Resolver, error) {
	ds, err := geodata.LoadDir(ctx, inputDir)
	if err != nil {
		return nil, err
	}
	t, err := geotree.ReadFile(artifact)
	if errors.Is(err, fs.ErrNotExist) {
		logger.L().Info("artifact_missing_build_in_memory", "path", artifact)
		t, _ = geotree.Build(ds)
	} else if err != nil {
		return nil, err
	}
	return resolver.New(t, ds), nil
}

func loadFromStore(ctx context.Context, st *store.Store) (*resolver.Resolver, error) {
	sn, err := st.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	t, ds, err := sn.Decode()
	if err != nil {
		return nil, err
	}
	logger.L().Info("snapshot_loaded", "id", sn.ID, "checksum", sn.Checksum, "created_at", sn.CreatedAt)
	return resolver.New(t, ds), nil
}
