package assert

import "reflect"

// NotNil panics if value is nil, including typed nil pointers, maps, funcs
// and interfaces.
func NotNil(value any, name ...string) {
	if value == nil || isNilValue(value) {
		panic(message("expected value to be not nil", name))
	}
}

// NotEmptyStr panics if str is empty.
func NotEmptyStr(str string, name ...string) {
	if str == "" {
		panic(message("expected string to be non-empty", name))
	}
}

func isNilValue(value any) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func message(base string, name []string) string {
	if len(name) == 0 {
		return base
	}
	return base + ": " + name[0]
}
