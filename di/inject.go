package di

import (
	"fmt"
	"reflect"
)

// Inject 通过指针注入实例到目标变量
// 用法示例：
//
//	var svc *UserService
//	di.Inject(c, &svc)
//
// 支持按键注入：
//
//	var db *sql.DB
//	di.Inject(scope, &db, "replica")
func Inject(r Resolver, target any, key ...any) error {
	targetVal := reflect.ValueOf(target)
	if targetVal.Kind() != reflect.Pointer {
		return fmt.Errorf("di: inject target must be a pointer, got %T", target)
	}
	if targetVal.IsNil() {
		return fmt.Errorf("di: inject target pointer is nil")
	}

	elemVal := targetVal.Elem()
	req := NewRequest(elemVal.Type(), nil, IfUnresolvedThrow)
	if len(key) > 0 {
		req.ServiceKey = key[0]
	}

	instance, err := r.ResolveRequest(req)
	if err != nil {
		return err
	}
	if instance == nil {
		elemVal.SetZero()
		return nil
	}
	elemVal.Set(reflect.ValueOf(instance))
	return nil
}

// MustInject 通过指针注入实例，失败时 panic
func MustInject(r Resolver, target any, key ...any) {
	if err := Inject(r, target, key...); err != nil {
		panic(err)
	}
}
