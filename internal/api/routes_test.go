package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"addr-geo/internal/geodata"
	"addr-geo/internal/geotree"
	"addr-geo/internal/resolver"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func kandal() *resolver.Resolver {
	ds := &geodata.Dataset{
		Provinces: []geodata.Province{{Code: "P1", NameEN: "Kandal", NameKM: "កណ្ដាល"}},
		Districts: []geodata.District{{Code: "D1", ProvinceCode: "P1", NameEN: "Ang Snuol", NameKM: "អង្គស្នួល"}},
		Communes:  []geodata.Commune{{Code: "C1", DistrictCode: "D1", NameEN: "Kokir", NameKM: "កកីរ"}},
		Villages: []geodata.Village{
			{CommuneCode: "C1", NameEN: "Prek Thmei", NameKM: "ព្រែកថ្មី"},
			{CommuneCode: "C1", NameEN: "Svay"},
		},
	}
	tree, _ := geotree.Build(ds)
	return resolver.New(tree, ds)
}

type RoutesSuite struct {
	suite.Suite
	holder  *Holder
	cache   *LRU
	reload  Reloader
	handler http.Handler
}

func (s *RoutesSuite) SetupTest() {
	s.holder = &Holder{}
	require.NoError(s.T(), s.holder.Set(kandal()))
	s.cache = NewLRU(16, time.Minute)
	s.reload = func(context.Context) (*resolver.Resolver, error) { return kandal(), nil }
	s.handler = BuildRoutes(s.holder, nil, Options{
		DefaultLang: resolver.LangEN,
		LocalCache:  s.cache,
		AdminToken:  "secret",
		Reload:      func(ctx context.Context) (*resolver.Resolver, error) { return s.reload(ctx) },
	})
}

func TestRoutesSuite(t *testing.T) {
	suite.Run(t, new(RoutesSuite))
}

func (s *RoutesSuite) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *RoutesSuite) decode(rec *httptest.ResponseRecorder, v any) {
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *RoutesSuite) TestOptions_Provinces() {
	rec := s.get("/options?level=province")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "application/json; charset=utf-8", rec.Header().Get("content-type"))

	var resp optionsResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), "province", resp.Level)
	assert.Equal(s.T(), "en", resp.Lang)
	assert.Equal(s.T(), []resolver.Option{{Value: "Kandal", Label: "Kandal"}}, resp.Options)
}

func (s *RoutesSuite) TestOptions_VillagesInKhmer() {
	rec := s.get("/options?level=village&lang=km-KH&province=Kandal&district=Ang+Snuol&commune=Kokir")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp optionsResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), "km", resp.Lang)
	assert.Equal(s.T(), []resolver.Option{
		{Value: "Prek Thmei", Label: "ព្រែកថ្មី"},
		{Value: "Svay", Label: "Svay"},
	}, resp.Options)
}

func (s *RoutesSuite) TestOptions_StaleAncestorIsEmpty() {
	rec := s.get("/options?level=commune&province=Kandal&district=Gone")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp optionsResponse
	s.decode(rec, &resp)
	assert.NotNil(s.T(), resp.Options)
	assert.Empty(s.T(), resp.Options)
}

func (s *RoutesSuite) TestOptions_Search() {
	rec := s.get("/options?level=4&province=Kandal&district=Ang+Snuol&commune=Kokir&q=prek")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp optionsResponse
	s.decode(rec, &resp)
	require.Len(s.T(), resp.Options, 1)
	assert.Equal(s.T(), "Prek Thmei", resp.Options[0].Value)
}

func (s *RoutesSuite) TestOptions_InvalidLevel() {
	rec := s.get("/options?level=street")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var resp errorResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), "invalid level", resp.Error)
}

func (s *RoutesSuite) TestOptions_CachedPerGeneration() {
	first := s.get("/options?level=province")
	require.Equal(s.T(), http.StatusOK, first.Code)
	assert.Equal(s.T(), 1, s.cache.Len())

	again := s.get("/options?level=province")
	assert.Equal(s.T(), first.Body.String(), again.Body.String())
	assert.Equal(s.T(), 1, s.cache.Len())

	require.NoError(s.T(), s.holder.Set(kandal()))
	s.get("/options?level=province")
	assert.Equal(s.T(), 2, s.cache.Len())
}

func (s *RoutesSuite) TestLabel() {
	rec := s.get("/label?level=village&lang=km&name=Prek+Thmei&province=Kandal&district=Ang+Snuol&commune=Kokir")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp labelResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), labelResponse{Label: "ព្រែកថ្មី"}, resp)
}

func (s *RoutesSuite) TestLabel_Fallback() {
	rec := s.get("/label?level=district&lang=km&name=Nowhere&province=Kandal")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp labelResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), labelResponse{Label: "Nowhere", Fallback: true}, resp)
}

func (s *RoutesSuite) TestAddress() {
	rec := s.get("/address?lang=km&province=Kandal&district=Ang+Snuol&commune=Kokir&village=Prek+Thmei&street=St.+271")
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp addressResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), "ព្រែកថ្មី, St. 271, កកីរ, អង្គស្នួល, កណ្ដាល", resp.Line)
}

func (s *RoutesSuite) TestTree() {
	rec := s.get("/tree")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.JSONEq(s.T(), `{"Kandal":{"Ang Snuol":{"Kokir":["Prek Thmei","Svay"]}}}`, rec.Body.String())
}

func (s *RoutesSuite) TestReload() {
	_, before := s.holder.Get()

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.Header.Set("x-admin-token", "secret")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusNoContent, rec.Code)
	_, after := s.holder.Get()
	assert.Equal(s.T(), before+1, after)
}

func (s *RoutesSuite) TestReload_Forbidden() {
	for _, token := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/reload", nil)
		if token != "" {
			req.Header.Set("x-admin-token", token)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(s.T(), http.StatusForbidden, rec.Code, token)
	}
}

func (s *RoutesSuite) TestReload_ErrorKeepsCurrent() {
	s.reload = func(context.Context) (*resolver.Resolver, error) { return nil, errors.New("snapshot gone") }
	_, before := s.holder.Get()

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.Header.Set("x-admin-token", "secret")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusInternalServerError, rec.Code)
	res, after := s.holder.Get()
	assert.Equal(s.T(), before, after)
	assert.NotNil(s.T(), res)
}

func TestRoutes_NotReady(t *testing.T) {
	h := BuildRoutes(&Holder{}, nil, Options{})
	for _, target := range []string{"/options?level=1", "/label?level=1&name=Kandal", "/address", "/tree"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestReload_NotConfigured(t *testing.T) {
	h := BuildRoutes(&Holder{}, nil, Options{AdminToken: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.Header.Set("x-admin-token", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOptionsQuery_Canonical(t *testing.T) {
	p := resolver.Path{Province: "Kandal", District: "Ang Snuol"}
	a := optionsQuery(resolver.LangKM, resolver.LevelCommune, p, "")
	assert.Equal(t, a, optionsQuery(resolver.LangKM, resolver.LevelCommune, p, ""))
	assert.NotEqual(t, a, optionsQuery(resolver.LangEN, resolver.LevelCommune, p, ""))

	assert.NotEqual(t, localKey(3, a), localKey(4, a))
	assert.Equal(t, "addrgeo:opt:abc:"+a, redisKey("abc", a))
}

func takeo() *resolver.Resolver {
	ds := &geodata.Dataset{
		Provinces: []geodata.Province{{Code: "P2", NameEN: "Takeo", NameKM: "តាកែវ"}},
	}
	tree, _ := geotree.Build(ds)
	return resolver.New(tree, ds)
}

func TestHolderVersion_ContentAddressed(t *testing.T) {
	var a, b, c Holder
	require.NoError(t, a.Set(kandal()))
	require.NoError(t, b.Set(takeo()))
	require.NoError(t, c.Set(kandal()))

	_, genA := a.Get()
	_, genB := b.Get()
	assert.Equal(t, genA, genB)
	assert.NotEqual(t, a.Version(), b.Version())
	assert.Equal(t, a.Version(), c.Version())
	assert.Len(t, a.Version(), 64)
}

func TestOptions_RedisSharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	serve := func(res *resolver.Resolver) (*Holder, http.Handler) {
		h := &Holder{}
		require.NoError(t, h.Set(res))
		return h, BuildRoutes(h, rc, Options{LocalCache: NewLRU(0, time.Minute)})
	}
	get := func(handler http.Handler) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options?level=province", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec
	}

	hk, kandalRoutes := serve(kandal())
	first := get(kandalRoutes)
	assert.JSONEq(t, `{"level":"province","lang":"en","options":[{"value":"Kandal","label":"Kandal"}]}`, first.Body.String())

	key := redisKey(hk.Version(), optionsQuery(resolver.LangEN, resolver.LevelProvince, resolver.Path{}, ""))
	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, first.Body.String(), stored)
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	// 另一实例加载了不同数据：不能读到 Kandal 的缓存
	_, takeoRoutes := serve(takeo())
	other := get(takeoRoutes)
	assert.Contains(t, other.Body.String(), `"Takeo"`)
	assert.NotContains(t, other.Body.String(), `"Kandal"`)
	assert.Len(t, mr.Keys(), 2)

	// 同一数据的实例命中共享条目
	require.NoError(t, mr.Set(key, `{"cached":true}`))
	_, sameRoutes := serve(kandal())
	assert.Equal(t, `{"cached":true}`, get(sameRoutes).Body.String())
}

func TestOptions_RedisUnavailableFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rc.Close() })
	mr.Close()

	h := &Holder{}
	require.NoError(t, h.Set(kandal()))
	rec := httptest.NewRecorder()
	BuildRoutes(h, rc, Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options?level=province", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Kandal"`)
}
