package di

import "reflect"

// frame 是依赖链上的一环，链表只追加、不修改。
type frame struct {
	key    ServiceKey
	regID  uint64
	parent *frame
}

// Request 描述一次解析请求。
type Request struct {
	ServiceType reflect.Type
	ServiceKey  any
	// RequiredServiceType 不为空时按此类型查找，结果仍赋值给 ServiceType。
	RequiredServiceType reflect.Type
	IfUnresolved        IfUnresolved

	parent *frame
}

// NewRequest 创建根请求。
func NewRequest(serviceType reflect.Type, serviceKey any, ifUnresolved IfUnresolved) Request {
	return Request{ServiceType: serviceType, ServiceKey: serviceKey, IfUnresolved: ifUnresolved}
}

func (r Request) lookupType() reflect.Type {
	if r.RequiredServiceType != nil {
		return r.RequiredServiceType
	}
	return r.ServiceType
}

func (r Request) key() ServiceKey {
	return ServiceKey{Type: r.lookupType(), Key: r.ServiceKey}
}

// push 返回以 reg 为父级的新链，原链不变。
func (r Request) push(reg *Registration) *frame {
	return &frame{key: r.key(), regID: reg.id, parent: r.parent}
}

// recursive 检查当前请求是否已在链上出现。
func (r Request) recursive(reg *Registration) bool {
	k := r.key()
	for f := r.parent; f != nil; f = f.parent {
		if f.regID == reg.id || f.key == k {
			return true
		}
	}
	return false
}

// chain 返回从根到当前请求的键序列。
func (r Request) chain() []ServiceKey {
	var keys []ServiceKey
	for f := r.parent; f != nil; f = f.parent {
		keys = append(keys, f.key)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	if r.ServiceType != nil {
		keys = append(keys, r.key())
	}
	return keys
}

func (r Request) info() RequestInfo {
	info := RequestInfo{ServiceType: r.ServiceType, ServiceKey: r.ServiceKey}
	for f := r.parent; f != nil; f = f.parent {
		info.Parents = append(info.Parents, f.key)
	}
	return info
}

func (r Request) cacheKey() planCacheKey {
	return planCacheKey{
		serviceType:  r.ServiceType,
		serviceKey:   r.ServiceKey,
		ifUnresolved: r.IfUnresolved,
		requiredType: r.RequiredServiceType,
	}
}
