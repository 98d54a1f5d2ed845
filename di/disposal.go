package di

import (
	"fmt"
	"io"
	"reflect"

	"go.uber.org/multierr"
)

// Disposable 由需要在作用域结束时清理的服务实现。
type Disposable interface {
	Dispose() error
}

type disposable struct {
	name string
	fn   func() error
}

// run 执行释放，panic 被转换为错误。
func (d disposable) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("di: dispose %s panicked: %v", d.name, r)
		}
	}()
	if e := d.fn(); e != nil {
		return fmt.Errorf("di: dispose %s: %w", d.name, e)
	}
	return nil
}

// disposerFor 按优先级选择释放方式：注册时的 Disposer，Disposable，io.Closer。
func disposerFor(reg *Registration, v reflect.Value) (func() error, bool) {
	if isNilValue(v) {
		return nil, false
	}
	instance := v.Interface()
	if reg.disposer != nil {
		return func() error { return reg.disposer(instance) }, true
	}
	switch x := instance.(type) {
	case Disposable:
		return x.Dispose, true
	case io.Closer:
		return x.Close, true
	}
	return nil, false
}

// disposeAll 按逆序释放。
func disposeAll(items []disposable) *AggregateDisposalError {
	var err error
	for i := len(items) - 1; i >= 0; i-- {
		err = multierr.Append(err, items[i].run())
	}
	if err == nil {
		return nil
	}
	return &AggregateDisposalError{Errors: multierr.Errors(err)}
}
