package httputil

import (
	"net/http"
	"reflect"
	"strings"
)

// DecodeForm copies posted form values into the string fields of the struct
// dst points to, keyed by their `form` tag. Fields tagged "-" or untagged are
// left alone. ParseForm or ParseMultipartForm must have run already.
func DecodeForm(r *http.Request, dst any) {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" || f.Type.Kind() != reflect.String {
			continue
		}
		v.Field(i).SetString(r.FormValue(name))
	}
}
