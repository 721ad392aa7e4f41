package moodle

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params is the flat key/value encoding moodle expects. Arrays and records
// are expressed with indexed keys such as "courseids[0]" or
// "options[0][name]".
type Params map[string]string

// Option is a name/value pair sent as options[i][name], options[i][value].
type Option struct {
	Name  string
	Value string
}

// Criterion is a key/value pair sent as criteria[i][key], criteria[i][value].
type Criterion struct {
	Key   string
	Value string
}

// Set stores value under key.
func (p Params) Set(key string, value any) Params {
	p[key] = formatValue(value)
	return p
}

// SetList stores values as key[0], key[1], ...
func SetList[T any](p Params, key string, values []T) Params {
	for i, v := range values {
		p[fmt.Sprintf("%s[%d]", key, i)] = formatValue(v)
	}
	return p
}

// SetField stores value as key[i][field].
func (p Params) SetField(key string, i int, field string, value any) Params {
	p[fmt.Sprintf("%s[%d][%s]", key, i, field)] = formatValue(value)
	return p
}

// SetOptions encodes options under key as key[i][name] and key[i][value].
func (p Params) SetOptions(key string, options []Option) Params {
	for i, o := range options {
		p.SetField(key, i, "name", o.Name)
		p.SetField(key, i, "value", o.Value)
	}
	return p
}

// SetCriteria encodes criteria under key as key[i][key] and key[i][value].
func (p Params) SetCriteria(key string, criteria []Criterion) Params {
	for i, c := range criteria {
		p.SetField(key, i, "key", c.Key)
		p.SetField(key, i, "value", c.Value)
	}
	return p
}

// Values returns the parameters as form values.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for key, value := range p {
		v.Set(key, value)
	}
	return v
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
