package explorer

import (
	"fmt"
	"reflect"
)

// Target 被测目标函数的调用适配。
// 调用方可以直接实现本接口（显式适配器）,也可以用 Func 基于反射包装任意 Go 函数。
type Target interface {
	// Name 目标函数名,写入枚举元信息
	Name() string

	// Call 以命名参数绑定调用目标。绑定失败返回 *ArityError
	Call(combo Combination) (interface{}, error)

	// CallPositional 以单个位置参数调用目标,仅作为单参数组合的回退路径。
	// 目标并非一元函数时返回 *ArityError
	CallPositional(arg interface{}) (interface{}, error)
}

// funcTarget 基于反射的 Target 实现
type funcTarget struct {
	name   string
	fn     reflect.Value
	params []string
}

// Func 将任意 Go 函数包装为 Target。
// params 按函数的形参顺序给出各参数名,用于命名绑定。
// fn 的返回约定:单个结果值,或 (结果值, error)。
func Func(name string, fn interface{}, params ...string) (Target, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("target %s is not a function", name)
	}
	t := v.Type()
	if t.NumIn() != len(params) {
		return nil, fmt.Errorf("target %s declares %d parameters but %d names were given",
			name, t.NumIn(), len(params))
	}
	if t.NumOut() > 2 {
		return nil, fmt.Errorf("target %s must return at most (value, error)", name)
	}
	if t.NumOut() == 2 && !t.Out(1).Implements(errType) {
		return nil, fmt.Errorf("target %s second return value must be error", name)
	}
	return &funcTarget{name: name, fn: v, params: params}, nil
}

// MustFunc 与 Func 相同,包装失败时 panic。用于静态已知合法的目标
func MustFunc(name string, fn interface{}, params ...string) Target {
	t, err := Func(name, fn, params...)
	if err != nil {
		panic(err)
	}
	return t
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func (t *funcTarget) Name() string {
	return t.name
}

func (t *funcTarget) Call(combo Combination) (interface{}, error) {
	if len(combo) != len(t.params) {
		return nil, &ArityError{
			Function: t.name,
			Reason:   fmt.Sprintf("expected %d arguments, got %d", len(t.params), len(combo)),
		}
	}
	args := make([]reflect.Value, len(t.params))
	for i, name := range t.params {
		v, ok := combo[name]
		if !ok {
			return nil, &ArityError{
				Function: t.name,
				Reason:   fmt.Sprintf("missing argument %q", name),
			}
		}
		arg, err := t.coerce(name, v, t.fn.Type().In(i))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return t.invoke(args)
}

func (t *funcTarget) CallPositional(arg interface{}) (interface{}, error) {
	if len(t.params) != 1 {
		return nil, &ArityError{
			Function: t.name,
			Reason:   fmt.Sprintf("positional call needs a unary function, have %d parameters", len(t.params)),
		}
	}
	v, err := t.coerce(t.params[0], arg, t.fn.Type().In(0))
	if err != nil {
		return nil, err
	}
	return t.invoke([]reflect.Value{v})
}

// coerce 将候选值适配到形参类型。可赋值直接用;同为数值族时做转换;
// 其余类型不匹配按调用约定错误处理
func (t *funcTarget) coerce(name string, v interface{}, want reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, &ArityError{
			Function: t.name,
			Reason:   fmt.Sprintf("argument %q: nil is not assignable to %s", name, want),
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	if isNumericKind(rv.Kind()) && isNumericKind(want.Kind()) {
		return rv.Convert(want), nil
	}
	return reflect.Value{}, &ArityError{
		Function: t.name,
		Reason:   fmt.Sprintf("argument %q: %s is not assignable to %s", name, rv.Type(), want),
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// invoke 执行实际调用。函数体的 panic 被恢复并转为错误,
// 与返回的非 nil error 一样属于可记录的 InvocationFailure
func (t *funcTarget) invoke(args []reflect.Value) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic in %s: %v", t.name, r)
		}
	}()

	out := t.fn.Call(args)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.fn.Type().Out(0).Implements(errType) {
			if !out[0].IsNil() {
				return nil, out[0].Interface().(error)
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
}
