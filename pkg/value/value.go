// Package value provides a tagged union over JSON values that keeps object
// member order as it appeared on the wire.
//
// Capability descriptors carry free-form structures (tool input schemas,
// prompt arguments, capability flags). Decoding them into map[string]interface{}
// loses member order and float precision, so they are held as Values instead
// and canonicalized explicitly before hashing.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "array"
	case KindMap:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	n       json.Number
	s       string
	items   []Value
	members []Member
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a JSON number literal. The literal is checked when the value is encoded.
func Number(n json.Number) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer.
func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

// Float wraps a float. NaN and infinities produce a value that fails to encode.
func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'g', -1, 64)))
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List builds an array from items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// Object builds an object from members, keeping their order.
func Object(members ...Member) Value {
	if members == nil {
		members = []Member{}
	}
	return Value{kind: KindMap, members: members}
}

// EmptyObject returns {}.
func EmptyObject() Value { return Object() }

// EmptyList returns [].
func EmptyList() Value { return List() }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Items returns the elements of an array, or nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// Members returns the members of an object in stored order, or nil for other kinds.
func (v Value) Members() []Member {
	if v.kind != KindMap {
		return nil
	}
	return v.members
}

// Len returns the number of items or members. Scalars have length 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindMap:
		return len(v.members)
	default:
		return 0
	}
}

// Get looks up a member of an object by key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the member keys of an object in stored order.
func (v Value) Keys() []string {
	members := v.Members()
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.Key)
	}
	return keys
}

// SortKeys returns a deep copy of v in which every object, at any depth,
// has its members ordered by key.
func (v Value) SortKeys() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = item.SortKeys()
		}
		return List(items...)
	case KindMap:
		members := make([]Member, len(v.members))
		for i, m := range v.members {
			members[i] = Member{Key: m.Key, Value: m.Value.SortKeys()}
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Key < members[j].Key
		})
		return Object(members...)
	default:
		return v
	}
}

// Equal reports structural equality. Object member order is ignored and
// numbers compare by exact numeric value, as CanonicalNumber spells them.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindNumber:
		return numbersEqual(v.n, other.n)
	case KindList:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.members) != len(other.members) {
			return false
		}
		for _, m := range v.members {
			o, ok := other.Get(m.Key)
			if !ok || !m.Value.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ca, errA := CanonicalNumber(a)
	cb, errB := CanonicalNumber(b)
	return errA == nil && errB == nil && ca == cb
}

// FromGo converts a Go value into a Value. Maps come out with sorted keys,
// since Go maps carry no order. Types without a direct mapping go through
// encoding/json.
func FromGo(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if err := checkNumber(t); err != nil {
			return Value{}, err
		}
		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("value: %v is not representable in JSON", t)
		}
		return Float(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			item, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("value: index %d: %w", i, err)
			}
			items = append(items, item)
		}
		return List(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			mv, err := FromGo(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("value: key %q: %w", k, err)
			}
			members = append(members, Member{Key: k, Value: mv})
		}
		return Object(members...), nil
	case json.RawMessage:
		return Decode(t)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return Value{}, fmt.Errorf("value: cannot convert %T: %w", x, err)
		}
		return Decode(data)
	}
}

// MustFromGo is FromGo for literals known to be valid. It panics on error.
func MustFromGo(x interface{}) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders v as compact JSON.
func (v Value) String() string {
	data, err := Encoder{}.Encode(v)
	if err != nil {
		return fmt.Sprintf("<invalid: %v>", err)
	}
	return string(data)
}
