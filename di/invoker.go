package di

import (
	"reflect"
)

// Invoker 实例化调用器
// 封装了反射调用的细节，预先检查错误返回值
type Invoker func(args []reflect.Value) (reflect.Value, error)

// newInvoker 为返回 T 或 (T, error) 的函数创建调用器
func newInvoker(fn reflect.Value) Invoker {
	t := fn.Type()
	variadic := t.IsVariadic()
	hasErr := t.NumOut() == 2

	return func(args []reflect.Value) (reflect.Value, error) {
		var results []reflect.Value
		if variadic {
			// 最后一个参数由容器以切片形式解析
			results = fn.CallSlice(args)
		} else {
			results = fn.Call(args)
		}

		// 检查 error
		if hasErr {
			if last := results[1]; !last.IsNil() {
				return reflect.Value{}, last.Interface().(error)
			}
		}
		return results[0], nil
	}
}

// callFunc 调用任意函数，只关心可能存在的末尾 error
func callFunc(fn reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
	var results []reflect.Value
	if fn.Type().IsVariadic() {
		results = fn.CallSlice(args)
	} else {
		results = fn.Call(args)
	}
	if n := len(results); n > 0 && results[n-1].Type() == errorType {
		if !results[n-1].IsNil() {
			return results[:n-1], results[n-1].Interface().(error)
		}
		results = results[:n-1]
	}
	return results, nil
}
