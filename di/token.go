package di

import (
	"fmt"
	"reflect"
)

// Token 是带类型的服务键，用于区分相同类型的不同注册
//
// 使用场景：
//   - 需要注册多个相同类型但用途不同的实例（如多个数据库连接）
//   - 配置值（如字符串、整数等基本类型）
//
// 示例：
//
//	var DSN = di.NewToken[string]("dsn")
//
//	di.RegisterValue(c, "postgres://...", di.WithToken(DSN))
//	dsn, _ := di.ResolveToken(c, DSN)
type Token[T any] struct {
	name string
	typ  reflect.Type
}

type tokenKey interface {
	Name() string
	Type() reflect.Type
}

// NewToken 创建一个新的 Token。每次调用得到不同的键，即使名称相同。
func NewToken[T any](name string) *Token[T] {
	return &Token[T]{
		name: name,
		typ:  TypeOf[T](),
	}
}

// Name 返回 Token 的名称
func (t *Token[T]) Name() string {
	return t.name
}

// Type 返回 Token 的类型
func (t *Token[T]) Type() reflect.Type {
	return t.typ
}

// String 返回 Token 的字符串表示
func (t *Token[T]) String() string {
	return fmt.Sprintf("Token[%s](%s)", t.typ, t.name)
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
//
//	userServiceType := di.TypeOf[UserService]()
//	instance, _ := c.Resolve(userServiceType, nil, di.IfUnresolvedThrow)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
