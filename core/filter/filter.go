// Package filter keeps list filters and their query string in sync.
//
// Setting any filter other than the page number resets pagination, and
// empty values are dropped rather than kept as empty parameters.
package filter

import (
	"net/url"
	"strconv"
	"strings"
)

// PageKey is the page number parameter.
const PageKey = "page"

// Filter is a set of single-valued query parameters.
type Filter struct {
	values url.Values
}

func New() *Filter {
	return &Filter{values: make(url.Values)}
}

// Parse reads a raw query string. A leading "?" is ignored.
func Parse(rawQuery string) (*Filter, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, err
	}
	return FromValues(v), nil
}

// FromValues keeps the last non-empty value of each parameter.
func FromValues(v url.Values) *Filter {
	f := New()
	for key, vals := range v {
		for i := len(vals) - 1; i >= 0; i-- {
			if val := strings.TrimSpace(vals[i]); val != "" {
				f.values.Set(key, val)
				break
			}
		}
	}
	return f
}

func (f *Filter) Get(key string) string {
	return f.values.Get(key)
}

func (f *Filter) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Int returns the integer value of key. ok is false when the key is absent or not an integer.
func (f *Filter) Int(key string) (n int, ok bool) {
	if !f.Has(key) {
		return 0, false
	}
	n, err := strconv.Atoi(f.values.Get(key))
	return n, err == nil
}

// Set assigns value to key. An empty value removes the key.
// Changing anything but the page resets the page.
func (f *Filter) Set(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		f.values.Del(key)
	} else {
		f.values.Set(key, value)
	}
	if key != PageKey {
		f.values.Del(PageKey)
	}
}

// Del is Set(key, "").
func (f *Filter) Del(key string) {
	f.Set(key, "")
}

// Page returns the page number, 1 when unset or invalid.
func (f *Filter) Page() int {
	if n, ok := f.Int(PageKey); ok && n >= 1 {
		return n
	}
	return 1
}

// WithPage returns a copy of f pointing to page n. Page 1 is left implicit.
func (f *Filter) WithPage(n int) *Filter {
	c := f.Clone()
	if n <= 1 {
		c.values.Del(PageKey)
	} else {
		c.values.Set(PageKey, strconv.Itoa(n))
	}
	return c
}

func (f *Filter) Clone() *Filter {
	c := New()
	for k, v := range f.values {
		c.values[k] = append([]string(nil), v...)
	}
	return c
}

// Values returns a copy of the parameters.
func (f *Filter) Values() url.Values {
	return f.Clone().values
}

func (f *Filter) Len() int { return len(f.values) }

// Encode returns the query string, sorted by key.
func (f *Filter) Encode() string {
	return f.values.Encode()
}

func (f *Filter) String() string { return f.Encode() }
