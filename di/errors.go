package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrUnableToResolveUnknownService 没有可用的注册满足请求。
	ErrUnableToResolveUnknownService = errors.New("unable to resolve unknown service")
	// ErrConstructorParametersUnresolvable 所有候选构造函数都存在无法满足的参数。
	ErrConstructorParametersUnresolvable = errors.New("constructor parameters unresolvable")
	// ErrRecursiveDependencyDetected 依赖链中出现了重复的 (类型, 键)。
	ErrRecursiveDependencyDetected = errors.New("recursive dependency detected")
	// ErrRegisteredProducerTypeMismatch 生产者的结果类型不能赋值给服务类型。
	ErrRegisteredProducerTypeMismatch = errors.New("registered producer type mismatch")
	// ErrScopeIsDisposed 作用域已释放。
	ErrScopeIsDisposed = errors.New("scope is disposed")
	// ErrFactoryObjIsNull 实例方法的接收者为空。
	ErrFactoryObjIsNull = errors.New("factory object is null in factory method")
	// ErrInvalidProducer 生产者定义本身不合法（不是函数、返回值个数错误等）。
	ErrInvalidProducer = errors.New("invalid producer")
	// ErrMultipleDefaultServices 严格模式下存在多个无键且未标记默认的注册。
	ErrMultipleDefaultServices = errors.New("multiple default services")
	// ErrContainerDisposed 容器已释放，不再接受注册。
	ErrContainerDisposed = errors.New("container is disposed")
)

// ResolutionError 描述注册、规划或解析过程中的失败。
// 通过 errors.Is 与上面的哨兵错误匹配。
type ResolutionError struct {
	Err         error
	ServiceType reflect.Type
	ServiceKey  any
	Chain       []ServiceKey // 从根请求到失败点
	Detail      string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("di: ")
	b.WriteString(e.Err.Error())
	if e.ServiceType != nil {
		b.WriteString(": ")
		b.WriteString(ServiceKey{Type: e.ServiceType, Key: e.ServiceKey}.String())
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if len(e.Chain) > 0 {
		parts := make([]string, len(e.Chain))
		for i, k := range e.Chain {
			parts[i] = k.String()
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, " -> "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func newResolutionError(sentinel error, req Request, detail string, args ...any) *ResolutionError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &ResolutionError{
		Err:         sentinel,
		ServiceType: req.ServiceType,
		ServiceKey:  req.ServiceKey,
		Chain:       req.chain(),
		Detail:      detail,
	}
}

// isDowngradable 判断错误能否被 IfUnresolvedReturnDefault 吞掉。
// 递归依赖永远不能。
func isDowngradable(err error) bool {
	if errors.Is(err, ErrRecursiveDependencyDetected) {
		return false
	}
	return errors.Is(err, ErrUnableToResolveUnknownService) ||
		errors.Is(err, ErrConstructorParametersUnresolvable)
}

// AggregateDisposalError 收集一次释放过程中所有失败的释放操作。
type AggregateDisposalError struct {
	Errors []error
}

func (e *AggregateDisposalError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("di: %d disposal(s) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *AggregateDisposalError) Unwrap() []error { return e.Errors }
