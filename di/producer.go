package di

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// ProducerKind 是生产者的封闭变体。
type ProducerKind int

const (
	// ProducerConstructor 一个或多个候选构造函数（包括按 di 标签的结构体字段注入）。
	ProducerConstructor ProducerKind = iota
	// ProducerStaticFunc 普通函数。
	ProducerStaticFunc
	// ProducerInstanceFunc 方法表达式，接收者从容器解析。
	ProducerInstanceFunc
	// ProducerConstant 预先创建的值。
	ProducerConstant
)

func (k ProducerKind) String() string {
	switch k {
	case ProducerConstructor:
		return "constructor"
	case ProducerStaticFunc:
		return "static func"
	case ProducerInstanceFunc:
		return "instance func"
	case ProducerConstant:
		return "constant"
	default:
		return fmt.Sprintf("ProducerKind(%d)", int(k))
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Param 描述生产者的一个参数。
type Param struct {
	Name                string
	Type                reflect.Type
	ServiceKey          any
	RequiredServiceType reflect.Type
	// Optional 为 true 时无法解析的参数注入零值。
	Optional bool

	value    reflect.Value
	hasValue bool
}

// Method 是一个可调用的生产函数及其显式参数表。
type Method struct {
	Name   string
	Params []Param
	Out    reflect.Type
	call   Invoker
}

// Producer 描述如何创建服务实例。
type Producer struct {
	Kind     ProducerKind
	ImplType reflect.Type
	// Methods 对 ProducerConstructor 是按声明顺序排列的候选；
	// 对两种函数生产者恰好一个。
	Methods []*Method
	// Factory 是 ProducerInstanceFunc 的接收者参数。
	Factory *Param
	Value   reflect.Value

	err       error
	errDetail string
}

func invalidProducer(kind ProducerKind, format string, args ...any) *Producer {
	return &Producer{Kind: kind, err: ErrInvalidProducer, errDetail: fmt.Sprintf(format, args...)}
}

func (p *Producer) assignableTo(t reflect.Type) bool {
	if p.ImplType == nil {
		// Constant(nil)
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return p.ImplType.AssignableTo(t)
}

// Arg 覆盖函数参数的解析方式，index 是参数在函数签名中的位置。
type Arg struct {
	index int
	apply func(*Param) error
}

// ArgKey 按服务键解析第 index 个参数。
func ArgKey(index int, key any) Arg {
	return Arg{index: index, apply: func(p *Param) error {
		p.ServiceKey = key
		return nil
	}}
}

// ArgValue 把第 index 个参数绑定为常量。
func ArgValue(index int, v any) Arg {
	return Arg{index: index, apply: func(p *Param) error {
		val := reflect.ValueOf(v)
		if v == nil {
			val = reflect.Zero(p.Type)
		}
		if !val.Type().AssignableTo(p.Type) {
			return fmt.Errorf("value of type %v is not assignable to parameter %s %v", val.Type(), p.Name, p.Type)
		}
		p.value = val
		p.hasValue = true
		return nil
	}}
}

// ArgOptional 标记第 index 个参数为可选。
func ArgOptional(index int) Arg {
	return Arg{index: index, apply: func(p *Param) error {
		p.Optional = true
		return nil
	}}
}

// ArgRequired 以 t 查找第 index 个参数的服务，t 必须能赋值给参数类型。
func ArgRequired(index int, t reflect.Type) Arg {
	return Arg{index: index, apply: func(p *Param) error {
		if t == nil || !t.AssignableTo(p.Type) {
			return fmt.Errorf("required type %v is not assignable to parameter %s %v", t, p.Name, p.Type)
		}
		p.RequiredServiceType = t
		return nil
	}}
}

func applyArgs(params []Param, args []Arg) error {
	for _, a := range args {
		if a.index < 0 || a.index >= len(params) {
			return fmt.Errorf("argument index %d out of range [0,%d)", a.index, len(params))
		}
		if err := a.apply(&params[a.index]); err != nil {
			return err
		}
	}
	return nil
}

func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		name := f.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	return fn.Type().String()
}

// newFuncMethod 检查函数签名：返回 T 或 (T, error)。
func newFuncMethod(fn any) (*Method, error) {
	v := reflect.ValueOf(fn)
	if fn == nil || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function, got %T", fn)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("nil function %T", fn)
	}
	t := v.Type()
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("%v must return T or (T, error)", t)
	}
	params := make([]Param, t.NumIn())
	for i := range params {
		params[i] = Param{Name: fmt.Sprintf("arg%d", i), Type: t.In(i)}
	}
	return &Method{
		Name:   funcName(v),
		Params: params,
		Out:    t.Out(0),
		call:   newInvoker(v),
	}, nil
}

// Constructor 创建构造函数生产者。所有候选必须返回相同的类型。
func Constructor(ctors ...any) *Producer {
	if len(ctors) == 0 {
		return invalidProducer(ProducerConstructor, "no constructors")
	}
	p := &Producer{Kind: ProducerConstructor}
	for i, ctor := range ctors {
		m, err := newFuncMethod(ctor)
		if err != nil {
			return invalidProducer(ProducerConstructor, "constructor %d: %v", i, err)
		}
		if p.ImplType == nil {
			p.ImplType = m.Out
		} else if m.Out != p.ImplType {
			return invalidProducer(ProducerConstructor, "constructor %d returns %v, expected %v", i, m.Out, p.ImplType)
		}
		p.Methods = append(p.Methods, m)
	}
	return p
}

// StaticFunc 创建普通函数生产者。
func StaticFunc(fn any, args ...Arg) *Producer {
	m, err := newFuncMethod(fn)
	if err != nil {
		return invalidProducer(ProducerStaticFunc, "%v", err)
	}
	if err := applyArgs(m.Params, args); err != nil {
		return invalidProducer(ProducerStaticFunc, "%s: %v", m.Name, err)
	}
	return &Producer{Kind: ProducerStaticFunc, ImplType: m.Out, Methods: []*Method{m}}
}

// InstanceFunc 创建实例方法生产者。method 通常是方法表达式，
// 例如 (*Factory).Create，第 0 个参数是接收者，可用 ArgKey(0, key) 按键解析。
func InstanceFunc(method any, args ...Arg) *Producer {
	m, err := newFuncMethod(method)
	if err != nil {
		return invalidProducer(ProducerInstanceFunc, "%v", err)
	}
	if len(m.Params) == 0 {
		return &Producer{Kind: ProducerInstanceFunc, err: ErrFactoryObjIsNull, errDetail: m.Name + " has no receiver"}
	}
	m.Params[0].Name = "receiver"
	if err := applyArgs(m.Params, args); err != nil {
		return invalidProducer(ProducerInstanceFunc, "%s: %v", m.Name, err)
	}
	factory := m.Params[0]
	if factory.hasValue && isNilValue(factory.value) {
		return &Producer{Kind: ProducerInstanceFunc, err: ErrFactoryObjIsNull, errDetail: m.Name + " bound to a nil receiver"}
	}
	m.Params = m.Params[1:]
	return &Producer{Kind: ProducerInstanceFunc, ImplType: m.Out, Methods: []*Method{m}, Factory: &factory}
}

// Constant 创建常量生产者。
func Constant(v any) *Producer {
	if v == nil {
		return &Producer{Kind: ProducerConstant}
	}
	val := reflect.ValueOf(v)
	return &Producer{Kind: ProducerConstant, ImplType: val.Type(), Value: val}
}

// StructOf 创建按 di 标签注入字段的构造函数生产者。
// typ 可以是结构体或结构体指针；标签格式为 `di:"key,optional"`，
// `di:"?"` 或 `di:"optional"` 表示无键的可选依赖。
func StructOf(typ reflect.Type) *Producer {
	if typ == nil {
		return invalidProducer(ProducerConstructor, "nil struct type")
	}
	st, isPtr := typ, false
	if st.Kind() == reflect.Ptr {
		st, isPtr = st.Elem(), true
	}
	if st.Kind() != reflect.Struct {
		return invalidProducer(ProducerConstructor, "%v is not a struct", typ)
	}
	params, fields, err := analyzeStruct(st)
	if err != nil {
		return invalidProducer(ProducerConstructor, "%v: %v", typ, err)
	}
	m := &Method{
		Name:   "new " + typ.String(),
		Params: params,
		Out:    typ,
		call: func(args []reflect.Value) (reflect.Value, error) {
			v := reflect.New(st)
			for i, idx := range fields {
				if args[i].IsValid() {
					v.Elem().Field(idx).Set(args[i])
				}
			}
			if isPtr {
				return v, nil
			}
			return v.Elem(), nil
		},
	}
	return &Producer{Kind: ProducerConstructor, ImplType: typ, Methods: []*Method{m}}
}

// analyzeStruct 把带 di 标签的字段编译成参数表，fields 是对应的字段下标。
func analyzeStruct(st reflect.Type) ([]Param, []int, error) {
	var (
		params []Param
		fields []int
	)
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag || tagValue == "-" {
			continue
		}
		if !field.IsExported() {
			return nil, nil, fmt.Errorf("field %s is unexported", field.Name)
		}

		// 解析 tag: "name,option1,option2"
		parts := strings.Split(tagValue, ",")
		name := strings.TrimSpace(parts[0])
		optional := false
		if name == "?" || name == "optional" {
			name = ""
			optional = true
		}
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			if part == "optional" || part == "?" {
				optional = true
			}
		}

		p := Param{Name: field.Name, Type: field.Type, Optional: optional}
		if name != "" {
			p.ServiceKey = name
		}
		params = append(params, p)
		fields = append(fields, i)
	}
	return params, fields, nil
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
