package di

import (
	"reflect"
	"sort"
)

// Registry 是不可变的注册表快照，Add 返回新的快照。
type Registry struct {
	byType map[reflect.Type][]*Registration
	count  int
}

// NewRegistry 返回空注册表。
func NewRegistry() *Registry {
	return &Registry{byType: map[reflect.Type][]*Registration{}}
}

// Add 写时复制：只复制受影响类型的切片，其余共享。
func (r *Registry) Add(reg *Registration) *Registry {
	next := &Registry{
		byType: make(map[reflect.Type][]*Registration, len(r.byType)+1),
		count:  r.count + 1,
	}
	for t, regs := range r.byType {
		next.byType[t] = regs
	}
	old := r.byType[reg.serviceType]
	regs := make([]*Registration, len(old), len(old)+1)
	copy(regs, old)
	next.byType[reg.serviceType] = append(regs, reg)
	return next
}

// Lookup 返回按注册顺序排列的候选。
// 指定键时只匹配该键；未指定键时返回无键的注册，若没有则返回全部。
func (r *Registry) Lookup(serviceType reflect.Type, serviceKey any) []*Registration {
	regs := r.byType[serviceType]
	if len(regs) == 0 {
		return nil
	}
	var out []*Registration
	if serviceKey != nil {
		for _, reg := range regs {
			if reg.serviceKey == serviceKey {
				out = append(out, reg)
			}
		}
		return out
	}
	for _, reg := range regs {
		if reg.serviceKey == nil {
			out = append(out, reg)
		}
	}
	if len(out) == 0 {
		return regs
	}
	return out
}

// All 返回某类型的全部注册，用于集合包装。
func (r *Registry) All(serviceType reflect.Type) []*Registration {
	return r.byType[serviceType]
}

// Has 判断是否存在匹配的注册。
func (r *Registry) Has(serviceType reflect.Type, serviceKey any) bool {
	return len(r.Lookup(serviceType, serviceKey)) > 0
}

// Len 返回注册总数。
func (r *Registry) Len() int { return r.count }

// Registrations 按注册 ID 顺序返回全部注册。
func (r *Registry) Registrations() []*Registration {
	out := make([]*Registration, 0, r.count)
	for _, regs := range r.byType {
		out = append(out, regs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// selectDefault 选出默认注册：最新的 IsDefault，否则最新的一个。
// strict 模式下多个候选且没有默认标记时返回 nil。
func selectDefault(candidates []*Registration, strict bool) *Registration {
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].isDefault {
			return candidates[i]
		}
	}
	if strict && len(candidates) > 1 {
		return nil
	}
	return candidates[len(candidates)-1]
}
