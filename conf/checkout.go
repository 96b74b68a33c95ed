package conf

import (
	"fmt"
	"reflect"
	"strconv"
)

/*
   Checkout fills a struct from conf using field tags:

       type Config struct {
           MaxOpenConns int    `conf:"CRV_DB_MAX_OPEN_CONNS" conf_default:"40"`
           DatabaseURL  string `conf:"DATABASE_URL"`
       }

   Fields without a conf tag are skipped. A missing variable falls back to
   conf_default when present, otherwise the field keeps its zero value.
*/

// Checkout populates the tagged fields of the struct pointed to by v.
// Supported field kinds are string, bool, and the signed integer kinds.
func Checkout(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("conf: Checkout requires a struct pointer, got %T", v)
	}
	return checkoutStruct(rv.Elem())
}

// checkoutStruct works on the reflect.Value directly so recursion into an
// unexported embedded struct stays legal; promoted exported fields remain
// settable even when the embedding field itself is unexported.
func checkoutStruct(elem reflect.Value) error {
	t := elem.Type()

	for i := 0; i < elem.NumField(); i++ {
		field := t.Field(i)
		target := elem.Field(i)

		// Recurse into embedded structs so configs can be composed.
		if field.Anonymous && target.Kind() == reflect.Struct {
			if err := checkoutStruct(target); err != nil {
				return err
			}
			continue
		}

		key, ok := field.Tag.Lookup("conf")
		if !ok || !target.CanSet() {
			continue
		}

		value := GetEnv(key)
		if value == "" {
			value = field.Tag.Get("conf_default")
		}
		if value == "" {
			continue
		}

		switch target.Kind() {
		case reflect.String:
			target.SetString(value)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("conf: %s: %q is not a bool", key, value)
			}
			target.SetBool(b)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("conf: %s: %q is not an integer", key, value)
			}
			target.SetInt(n)
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("conf: %s: %q is not a float", key, value)
			}
			target.SetFloat(f)
		default:
			return fmt.Errorf("conf: %s: unsupported field kind %s", key, target.Kind())
		}
	}

	return nil
}
