// 包 api：集中注册地址级联查询的 HTTP 路由，主入口只负责挂载
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"addr-geo/internal/logger"
	"addr-geo/internal/metrics"
	"addr-geo/internal/resolver"

	"github.com/redis/go-redis/v9"
)

// Reloader：重新加载数据源并返回新的解析器
type Reloader func(ctx context.Context) (*resolver.Resolver, error)

// Options：路由配置
type Options struct {
	DefaultLang resolver.Lang
	CacheTTL    time.Duration
	LocalCache  *LRU
	AdminToken  string
	Reload      Reloader
}

type optionsResponse struct {
	Level   string            `json:"level"`
	Lang    string            `json:"lang"`
	Options []resolver.Option `json:"options"`
}

type labelResponse struct {
	Label    string `json:"label"`
	Fallback bool   `json:"fallback"`
}

type addressResponse struct {
	Line string `json:"line"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀；rc 为 nil 时不使用 Redis。
func BuildRoutes(h *Holder, rc *redis.Client, opts Options) *http.ServeMux {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /options", func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		defer observe("options", begin)
		c := h.v.Load()
		if c == nil {
			writeError(w, http.StatusServiceUnavailable, "resolver not ready")
			return
		}
		res := c.res
		q := r.URL.Query()
		level, ok := resolver.ParseLevel(q.Get("level"))
		if !ok {
			metrics.BadRequestsTotal.WithLabelValues("options").Inc()
			writeError(w, http.StatusBadRequest, "invalid level")
			return
		}
		lang := langOf(q, opts.DefaultLang)
		path := pathOf(q)
		search := q.Get("q")
		query := optionsQuery(lang, level, path, search)
		key := localKey(c.gen, query)
		rkey := redisKey(c.version, query)
		if b, ok := opts.LocalCache.get(key); ok {
			metrics.LocalCacheHitsTotal.Inc()
			writeRaw(w, b)
			return
		}
		if rc != nil {
			if b, err := rc.Get(r.Context(), rkey).Bytes(); err == nil {
				metrics.RedisHitsTotal.Inc()
				opts.LocalCache.set(key, b)
				writeRaw(w, b)
				return
			} else if !errors.Is(err, redis.Nil) {
				logger.L().Debug("redis_get_error", "err", err)
			}
			metrics.RedisMissesTotal.Inc()
		}
		names := resolver.Search(res.OptionsAtLevel(level, path), search)
		out := optionsResponse{Level: level.String(), Lang: lang.String(), Options: make([]resolver.Option, 0, len(names))}
		for _, n := range names {
			label, found := res.Lookup(lang, level, n, path)
			if !found {
				metrics.LabelFallbackTotal.WithLabelValues(level.String(), lang.String()).Inc()
			}
			out.Options = append(out.Options, resolver.Option{Value: n, Label: label})
		}
		b, err := json.Marshal(out)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		opts.LocalCache.set(key, b)
		if rc != nil {
			if err := rc.Set(r.Context(), rkey, b, opts.CacheTTL).Err(); err != nil {
				logger.L().Debug("redis_set_error", "err", err)
			}
		}
		writeRaw(w, b)
	})
	mux.HandleFunc("GET /label", func(w http.ResponseWriter, r *http.Request) {
		defer observe("label", time.Now())
		res, _ := h.Get()
		if res == nil {
			writeError(w, http.StatusServiceUnavailable, "resolver not ready")
			return
		}
		q := r.URL.Query()
		level, ok := resolver.ParseLevel(q.Get("level"))
		if !ok {
			metrics.BadRequestsTotal.WithLabelValues("label").Inc()
			writeError(w, http.StatusBadRequest, "invalid level")
			return
		}
		lang := langOf(q, opts.DefaultLang)
		label, found := res.Lookup(lang, level, q.Get("name"), pathOf(q))
		if !found {
			metrics.LabelFallbackTotal.WithLabelValues(level.String(), lang.String()).Inc()
		}
		writeJSON(w, http.StatusOK, labelResponse{Label: label, Fallback: !found})
	})
	mux.HandleFunc("GET /address", func(w http.ResponseWriter, r *http.Request) {
		defer observe("address", time.Now())
		res, _ := h.Get()
		if res == nil {
			writeError(w, http.StatusServiceUnavailable, "resolver not ready")
			return
		}
		q := r.URL.Query()
		path := pathOf(q)
		path.Village = q.Get("village")
		writeJSON(w, http.StatusOK, addressResponse{Line: res.AddressLine(langOf(q, opts.DefaultLang), path, q.Get("street"))})
	})
	mux.HandleFunc("GET /tree", func(w http.ResponseWriter, r *http.Request) {
		defer observe("tree", time.Now())
		b := h.TreeJSON()
		if b == nil {
			writeError(w, http.StatusServiceUnavailable, "resolver not ready")
			return
		}
		writeRaw(w, b)
	})
	mux.HandleFunc("POST /reload", func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if opts.AdminToken == "" || t != opts.AdminToken {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if opts.Reload == nil {
			writeError(w, http.StatusNotImplemented, "reload not configured")
			return
		}
		res, err := opts.Reload(r.Context())
		if err == nil {
			err = h.Set(res)
		}
		if err != nil {
			metrics.ReloadsTotal.WithLabelValues("error").Inc()
			logger.L().Error("reload_error", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.ReloadsTotal.WithLabelValues("ok").Inc()
		_, gen := h.Get()
		logger.L().Info("reload_ok", "gen", gen, "version", h.Version())
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func observe(endpoint string, begin time.Time) {
	metrics.RequestsTotal.WithLabelValues(endpoint).Inc()
	metrics.RequestDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(begin).Milliseconds()))
}

func langOf(q url.Values, def resolver.Lang) resolver.Lang {
	if s := q.Get("lang"); s != "" {
		return resolver.ParseLang(s)
	}
	return def
}

func pathOf(q url.Values) resolver.Path {
	return resolver.Path{Province: q.Get("province"), District: q.Get("district"), Commune: q.Get("commune")}
}

// optionsQuery：规范化后的选项查询串
func optionsQuery(lang resolver.Lang, level resolver.Level, p resolver.Path, search string) string {
	v := url.Values{}
	v.Set("lang", lang.String())
	v.Set("level", level.String())
	v.Set("province", p.Province)
	v.Set("district", p.District)
	v.Set("commune", p.Commune)
	v.Set("q", search)
	return v.Encode()
}

// localKey：进程内缓存键，携带解析器代数
func localKey(gen uint64, query string) string {
	return "opt:" + strconv.FormatUint(gen, 10) + ":" + query
}

// redisKey：跨进程缓存键，携带数据内容校验和，同一数据版本的实例共享条目
func redisKey(version, query string) string {
	return "addrgeo:opt:" + version + ":" + query
}

func (c *LRU) get(k string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.Get(k)
}

func (c *LRU) set(k string, v []byte) {
	if c != nil {
		c.Set(k, v)
	}
}

func writeRaw(w http.ResponseWriter, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
