package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/hosting"
	"github.com/gocrud/compose/web"
)

// 每个请求一份
type requestState struct {
	id     int64
	closed *atomic.Int32
}

func (s *requestState) Close() error {
	s.closed.Add(1)
	return nil
}

type greeter struct{}

func (greeter) Greet(name string) string { return "hello " + name }

func newContainer(t *testing.T) (*di.Container, *atomic.Int32) {
	t.Helper()
	c := di.NewContainer()
	var seq atomic.Int64
	closed := &atomic.Int32{}
	require.NoError(t, di.RegisterFunc[*requestState](c, func() *requestState {
		return &requestState{id: seq.Add(1), closed: closed}
	}, di.WithScoped()))
	require.NoError(t, di.RegisterValue(c, greeter{}))
	return c, closed
}

func serve(t *testing.T, engine http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestScopePerRequest(t *testing.T) {
	c, closed := newContainer(t)
	b := web.NewBuilder(c)
	b.Get("/state", func(ctx *gin.Context) {
		first, err := web.Resolve[*requestState](ctx)
		require.NoError(t, err)
		second, err := web.Resolve[*requestState](ctx)
		require.NoError(t, err)
		assert.Same(t, first, second)
		ctx.JSON(http.StatusOK, gin.H{"id": first.id})
	})

	w1 := serve(t, b.Engine(), http.MethodGet, "/state")
	w2 := serve(t, b.Engine(), http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, w1.Code)
	assert.NotEqual(t, w1.Body.String(), w2.Body.String())
	assert.Equal(t, int32(2), closed.Load())
}

func TestHandle(t *testing.T) {
	c, _ := newContainer(t)
	b := web.NewBuilder(c)
	b.Get("/greet/:name", web.Handle(func(ctx *gin.Context, g greeter, s *requestState) (gin.H, error) {
		return gin.H{"msg": g.Greet(ctx.Param("name")), "id": s.id}, nil
	}))
	b.Get("/fail", web.Handle(func() (any, error) { return nil, errors.New("boom") }))
	b.Get("/missing", web.Handle(func(*time.Location) {}))

	w := serve(t, b.Engine(), http.MethodGet, "/greet/gopher")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "hello gopher", body["msg"])

	w = serve(t, b.Engine(), http.MethodGet, "/fail")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")

	w = serve(t, b.Engine(), http.MethodGet, "/missing")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResolveWithoutScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", func(ctx *gin.Context) {
		_, err := web.Resolve[greeter](ctx)
		assert.ErrorIs(t, err, web.ErrNoScope)
		ctx.Status(http.StatusNoContent)
	})
	engine.GET("/handle", web.Handle(func() {}))

	assert.Equal(t, http.StatusNoContent, serve(t, engine, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(t, engine, http.MethodGet, "/handle").Code)
}

type pingController struct {
	G greeter `di:""`
}

func (p *pingController) MountRoutes(r gin.IRouter) {
	r.GET("/ping", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, p.G.Greet("ping"))
	})
}

type itemController struct {
	prefix string
}

func newItemController(g greeter) *itemController {
	return &itemController{prefix: g.Greet("item")}
}

func (i *itemController) MountRoutes(r gin.IRouter) {
	r.GET("/item", web.Handle(func(s *requestState) string {
		return fmt.Sprintf("%s %d", i.prefix, s.id)
	}))
}

func TestHostServesControllers(t *testing.T) {
	c, _ := newContainer(t)
	host, err := web.New(c,
		web.WithPort(0),
		web.WithControllers(&pingController{}, newItemController),
	)
	require.NoError(t, err)
	assert.Same(t, host, di.MustResolve[*web.Host](c))

	h := hosting.NewHost(c, hosting.HostOptions{})
	require.NoError(t, h.Start(context.Background()))
	select {
	case <-host.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("web host did not start")
	}

	resp, err := http.Get("http://" + host.Address() + "/ping")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "hello ping", string(data))

	resp, err = http.Get("http://" + host.Address() + "/item")
	require.NoError(t, err)
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, `"hello item 1"`, string(data))

	require.NoError(t, h.Stop(context.Background()))
}

func TestInvalidController(t *testing.T) {
	c := di.NewContainer()
	_, err := web.New(c, web.WithControllers(func() int { return 1 }))
	assert.ErrorIs(t, err, di.ErrRegisteredProducerTypeMismatch)
}
