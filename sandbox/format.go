package sandbox

import (
	"github.com/dop251/goja"
)

// format renders one console argument: strings verbatim, numbers and
// booleans in their natural form, null and undefined by name, anything
// else as JSON. When JSON serialization throws (circular structures,
// bigints) the value's String() form is used instead. JSON that yields
// undefined, as for functions and symbols, renders as "".
func (s *scope) format(v goja.Value) (string, error) {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined", nil
	case goja.IsNull(v):
		return "null", nil
	}
	if _, symbol := v.(*goja.Symbol); !symbol {
		switch v.Export().(type) {
		case string, int64, float64, bool:
			return v.String(), nil
		}
	}

	out, err := s.stringify(goja.Undefined(), v)
	if err == nil {
		if goja.IsUndefined(out) {
			return "", nil
		}
		return out.String(), nil
	}

	str, err := s.toString(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	return str.String(), nil
}

// errorText renders a value thrown from deferred work. Error instances
// use their "Name: message" form since JSON drops their fields.
func (s *scope) errorText(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok && s.vm.InstanceOf(obj, s.errorCtor) {
		if str, err := s.toString(goja.Undefined(), obj); err == nil {
			return str.String()
		}
	}
	text, err := s.format(v)
	if err != nil {
		return "<unprintable value>"
	}
	return text
}

// message is the text of a top-level fault: an Error's message property,
// or the thrown value's string form.
func (s *scope) message(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok && s.vm.InstanceOf(obj, s.errorCtor) {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	if v == nil {
		return "undefined"
	}
	str, err := s.toString(goja.Undefined(), v)
	if err != nil {
		return "uncaught exception"
	}
	return str.String()
}
