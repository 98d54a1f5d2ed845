package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

const scopeContextKey = "compose.scope"

// ErrNoScope 请求没有经过 ScopeMiddleware
var ErrNoScope = errors.New("web: request has no scope")

// ScopeMiddleware 为每个请求打开一个作用域，请求结束时释放
func ScopeMiddleware(c *di.Container) gin.HandlerFunc {
	logger := c.Options().Logger.WithCategory("web")
	return func(ctx *gin.Context) {
		scope := c.OpenScope(nil)
		ctx.Set(scopeContextKey, scope)
		defer func() {
			if err := scope.Dispose(); err != nil {
				logger.Error("web: failed to dispose request scope",
					logging.Field{Key: "path", Value: ctx.FullPath()},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}()
		ctx.Next()
	}
}

// ScopeFrom 返回当前请求的作用域
func ScopeFrom(ctx *gin.Context) (*di.Scope, bool) {
	v, ok := ctx.Get(scopeContextKey)
	if !ok {
		return nil, false
	}
	scope, ok := v.(*di.Scope)
	return scope, ok
}

// Resolve 从当前请求的作用域解析 T
func Resolve[T any](ctx *gin.Context) (T, error) {
	scope, ok := ScopeFrom(ctx)
	if !ok {
		var zero T
		return zero, ErrNoScope
	}
	return di.Resolve[T](scope)
}

var ginContextType = reflect.TypeOf((*gin.Context)(nil))

// Handle 把任意函数适配为 gin.HandlerFunc。
// *gin.Context 参数绑定为当前请求，其余参数从请求作用域解析。
// 函数返回 (T, error) 时，错误以 500 响应，非 nil 的 T 以 JSON 响应。
func Handle(fn any) gin.HandlerFunc {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("web: Handle expects a function, got %T", fn))
	}
	var ctxIndexes []int
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i) == ginContextType {
			ctxIndexes = append(ctxIndexes, i)
		}
	}

	return func(ctx *gin.Context) {
		scope, ok := ScopeFrom(ctx)
		if !ok {
			_ = ctx.Error(ErrNoScope)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": ErrNoScope.Error()})
			return
		}
		args := make([]di.Arg, len(ctxIndexes))
		for i, idx := range ctxIndexes {
			args[i] = di.ArgValue(idx, ctx)
		}

		results, err := scope.Invoke(fn, args...)
		if err != nil {
			_ = ctx.Error(err)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(results) > 0 && results[0] != nil && !ctx.Writer.Written() {
			ctx.JSON(http.StatusOK, results[0])
		}
	}
}
