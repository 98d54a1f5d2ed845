package di

import (
	"fmt"
	"reflect"
	"strings"
)

type planKind int

const (
	planInvoke planKind = iota
	planConstant
	planUnresolved
	planLazy
	planCollection
)

// Plan 是不可变的构造计划树，一次规划，多次执行。
type Plan struct {
	kind        planKind
	serviceType reflect.Type

	// planInvoke
	reg     *Registration
	method  *Method
	factory *Plan
	args    []*Plan

	// planConstant
	value reflect.Value

	// planLazy
	target Request

	// planCollection
	items []*Plan
}

// IsUnresolved 报告计划是否为 "无法解析" 标记。
func (p *Plan) IsUnresolved() bool { return p.kind == planUnresolved }

// ServiceType 返回计划产出值的声明类型。
func (p *Plan) ServiceType() reflect.Type { return p.serviceType }

// Registration 返回调用节点对应的注册，其它节点返回 nil。
func (p *Plan) Registration() *Registration { return p.reg }

func (p *Plan) instanceKey() instanceKey {
	return instanceKey{regID: p.reg.id, serviceType: p.reg.serviceType}
}

func unresolvedPlan(t reflect.Type) *Plan {
	return &Plan{kind: planUnresolved, serviceType: t}
}

func constantPlan(t reflect.Type, v reflect.Value) *Plan {
	if !v.IsValid() {
		v = reflect.Zero(t)
	}
	return &Plan{kind: planConstant, serviceType: t, value: v}
}

func (p *Plan) String() string {
	var b strings.Builder
	p.write(&b, 0)
	return b.String()
}

func (p *Plan) write(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	switch p.kind {
	case planInvoke:
		fmt.Fprintf(b, "%s %v [%s]\n", p.method.Name, p.serviceType, p.reg.scope)
		if p.factory != nil {
			p.factory.write(b, depth+1)
		}
		for _, a := range p.args {
			a.write(b, depth+1)
		}
	case planConstant:
		fmt.Fprintf(b, "const %v\n", p.serviceType)
	case planUnresolved:
		fmt.Fprintf(b, "unresolved %v\n", p.serviceType)
	case planLazy:
		fmt.Fprintf(b, "lazy %v\n", p.target.key())
	case planCollection:
		fmt.Fprintf(b, "collection %v (%d)\n", p.serviceType, len(p.items))
		for _, it := range p.items {
			it.write(b, depth+1)
		}
	}
}
