package di

import (
	"fmt"
	"reflect"
	"strings"
)

// planner 针对单个注册表快照构建计划。
type planner struct {
	registry *Registry
	strict   bool
}

// plan 规划请求，按 IfUnresolved 策略降级可降级的错误。
func (p *planner) plan(req Request) (*Plan, error) {
	pl, err := p.planRequest(req)
	if err != nil {
		if req.IfUnresolved == IfUnresolvedReturnDefault && isDowngradable(err) {
			return unresolvedPlan(req.ServiceType), nil
		}
		return nil, err
	}
	return pl, nil
}

func (p *planner) planRequest(req Request) (*Plan, error) {
	if req.ServiceType == nil {
		return nil, newResolutionError(ErrUnableToResolveUnknownService, req, "nil service type")
	}
	if !comparableKey(req.ServiceKey) {
		return nil, newResolutionError(ErrUnableToResolveUnknownService, req, "service key of type %T is not comparable", req.ServiceKey)
	}
	if req.RequiredServiceType != nil && !req.RequiredServiceType.AssignableTo(req.ServiceType) {
		return nil, newResolutionError(ErrRegisteredProducerTypeMismatch, req,
			"required type %v is not assignable to %v", req.RequiredServiceType, req.ServiceType)
	}

	candidates := p.candidates(req, p.registry.Lookup(req.lookupType(), req.ServiceKey))
	if len(candidates) == 0 {
		if pl, ok, err := p.planWrapper(req); ok {
			return pl, err
		}
		return nil, newResolutionError(ErrUnableToResolveUnknownService, req, "")
	}

	reg := selectDefault(candidates, p.strict)
	if reg == nil {
		return nil, newResolutionError(ErrMultipleDefaultServices, req, "%d candidates", len(candidates))
	}
	return p.planRegistration(req, reg)
}

// candidates 过滤掉条件不满足的注册。
func (p *planner) candidates(req Request, regs []*Registration) []*Registration {
	var out []*Registration
	var info *RequestInfo
	for _, reg := range regs {
		if reg.condition != nil && info == nil {
			i := req.info()
			info = &i
		}
		if reg.condition == nil || reg.matches(*info) {
			out = append(out, reg)
		}
	}
	return out
}

// planRegistration 为已选定的注册构建调用节点。
func (p *planner) planRegistration(req Request, reg *Registration) (*Plan, error) {
	if req.recursive(reg) {
		return nil, newResolutionError(ErrRecursiveDependencyDetected, req, "")
	}
	parent := req.push(reg)
	producer := reg.producer

	switch producer.Kind {
	case ProducerConstant:
		pl := constantPlan(req.ServiceType, producer.Value)
		pl.reg = reg
		return pl, nil

	case ProducerConstructor:
		if len(producer.Methods) == 1 {
			args, err := p.planArgs(parent, producer.Methods[0], false)
			if err != nil {
				return nil, err
			}
			return p.invokePlan(req, reg, producer.Methods[0], nil, args), nil
		}
		return p.selectConstructor(req, reg, parent)

	case ProducerStaticFunc:
		args, err := p.planArgs(parent, producer.Methods[0], false)
		if err != nil {
			return nil, err
		}
		return p.invokePlan(req, reg, producer.Methods[0], nil, args), nil

	case ProducerInstanceFunc:
		factory, err := p.planParam(parent, *producer.Factory, false)
		if err != nil {
			return nil, err
		}
		args, err := p.planArgs(parent, producer.Methods[0], false)
		if err != nil {
			return nil, err
		}
		return p.invokePlan(req, reg, producer.Methods[0], factory, args), nil
	}
	return nil, newResolutionError(ErrInvalidProducer, req, "unknown producer kind %v", producer.Kind)
}

func (p *planner) invokePlan(req Request, reg *Registration, m *Method, factory *Plan, args []*Plan) *Plan {
	return &Plan{
		kind:        planInvoke,
		serviceType: req.ServiceType,
		reg:         reg,
		method:      m,
		factory:     factory,
		args:        args,
	}
}

// selectConstructor 以 ReturnDefault 探测每个候选，选择参数最多的可满足候选，
// 参数个数相同时取先声明的。
func (p *planner) selectConstructor(req Request, reg *Registration, parent *frame) (*Plan, error) {
	var (
		best     *Method
		bestArgs []*Plan
		rejected []string
	)
	for _, m := range reg.producer.Methods {
		args, err := p.planArgs(parent, m, true)
		if err != nil {
			return nil, err
		}
		if missing := unresolvedParams(m, args); len(missing) > 0 {
			rejected = append(rejected, fmt.Sprintf("%s(missing %s)", m.Name, strings.Join(missing, ", ")))
			continue
		}
		if best == nil || len(m.Params) > len(best.Params) {
			best, bestArgs = m, args
		}
	}
	if best == nil {
		return nil, newResolutionError(ErrConstructorParametersUnresolvable, req, "%s", strings.Join(rejected, "; "))
	}
	return p.invokePlan(req, reg, best, nil, bestArgs), nil
}

func unresolvedParams(m *Method, args []*Plan) []string {
	var missing []string
	for i, a := range args {
		if a.IsUnresolved() && !m.Params[i].Optional {
			missing = append(missing, fmt.Sprintf("%s %v", m.Params[i].Name, m.Params[i].Type))
		}
	}
	return missing
}

func (p *planner) planArgs(parent *frame, m *Method, probe bool) ([]*Plan, error) {
	args := make([]*Plan, len(m.Params))
	for i, param := range m.Params {
		pl, err := p.planParam(parent, param, probe)
		if err != nil {
			return nil, err
		}
		args[i] = pl
	}
	return args, nil
}

func (p *planner) planParam(parent *frame, param Param, probe bool) (*Plan, error) {
	if param.hasValue {
		return constantPlan(param.Type, param.value), nil
	}
	sub := Request{
		ServiceType:         param.Type,
		ServiceKey:          param.ServiceKey,
		RequiredServiceType: param.RequiredServiceType,
		IfUnresolved:        IfUnresolvedThrow,
		parent:              parent,
	}
	if probe || param.Optional {
		sub.IfUnresolved = IfUnresolvedReturnDefault
	}
	return p.plan(sub)
}

// planWrapper 处理未显式注册的包装类型：Lazy[T] 与 []T。
func (p *planner) planWrapper(req Request) (*Plan, bool, error) {
	t := req.lookupType()
	if target, ok := lazyTargetOf(t); ok {
		inner := Request{ServiceType: target, ServiceKey: req.ServiceKey, IfUnresolved: IfUnresolvedThrow}
		if !p.registry.Has(target, req.ServiceKey) {
			if _, wrapped := wrapperType(target); !wrapped {
				return nil, true, newResolutionError(ErrUnableToResolveUnknownService, req, "lazy target %v is not registered", target)
			}
		}
		return &Plan{kind: planLazy, serviceType: req.ServiceType, target: inner}, true, nil
	}
	if t.Kind() == reflect.Slice {
		pl, err := p.planCollection(req, t)
		return pl, true, err
	}
	return nil, false, nil
}

// planCollection 按注册顺序收集全部可解析的元素，无法解析的元素被跳过。
func (p *planner) planCollection(req Request, sliceType reflect.Type) (*Plan, error) {
	elem := sliceType.Elem()
	pl := &Plan{kind: planCollection, serviceType: req.ServiceType}
	// 集合节点本身不入链，元素直接挂在请求的父级上
	itemReq := Request{ServiceType: elem, IfUnresolved: IfUnresolvedReturnDefault, parent: req.parent}
	regs := p.registry.All(elem)
	for _, reg := range regs {
		if req.ServiceKey != nil && reg.serviceKey != req.ServiceKey {
			continue
		}
		r := itemReq
		r.ServiceKey = reg.serviceKey
		if !reg.matches(r.info()) {
			continue
		}
		item, err := p.planRegistration(r, reg)
		if err != nil {
			if isDowngradable(err) {
				continue
			}
			return nil, err
		}
		pl.items = append(pl.items, item)
	}
	return pl, nil
}

// wrapperType 报告 t 是否是容器可以隐式构造的包装类型。
func wrapperType(t reflect.Type) (reflect.Type, bool) {
	if target, ok := lazyTargetOf(t); ok {
		return target, true
	}
	if t.Kind() == reflect.Slice {
		return t.Elem(), true
	}
	return nil, false
}

// comparableKey 报告 key 能否作为注册表与计划缓存的键。
func comparableKey(key any) bool {
	return key == nil || reflect.TypeOf(key).Comparable()
}
