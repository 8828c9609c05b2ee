// Package environment resolves toolkit configuration from environment
// variables and the preferences file.
package environment

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	lib "github.com/din14970/hyperspy/library"
)

// CreateENVOptions create env options
type CreateENVOptions func(*ENVConfig) error

const (
	envKey = "ENV"
	envTag = "env"
)

// Environment types
const (
	Development = "development"
	Testing     = "testing"
	Staging     = "staging"
	Production  = "production"
)

// Environment returns the current running environment
func Environment() string {
	environment := os.Getenv(envKey)
	if environment == Production || environment == Staging || environment == Testing {
		return environment
	}
	return Development
}

// ENVConfig defines environment configs
type ENVConfig struct {
	Prefix string
}

// ENV defines environment object
type ENV struct {
	Config *ENVConfig
}

// CreateENV create environment object
func CreateENV(options ...CreateENVOptions) (*ENV, error) {
	config := ENVConfig{}
	for _, op := range options {
		if err := op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create env", "option error"))
		}
	}
	return &ENV{Config: &config}, nil
}

// SetPrefixOption set environment prefix option
func SetPrefixOption(prefix string) CreateENVOptions {
	return func(config *ENVConfig) error {
		config.Prefix = prefix
		return nil
	}
}

// EVString gets environment variable by key, returns its value as string
// or returns fallback if not available
func (e *ENV) EVString(key string, fallback string) string {
	value, found := os.LookupEnv(e.key(key))
	if !found {
		return fallback
	}
	return value
}

// EVInt gets environment variable by key, returns its value as int
// or returns fallback if not available
func (e *ENV) EVInt(key string, fallback int) (int, error) {
	value, found := os.LookupEnv(e.key(key))
	if !found {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

// EVBool gets environment variable by key, returns its value as bool
// or returns fallback if not available
func (e *ENV) EVBool(key string, fallback bool) (bool, error) {
	value, found := os.LookupEnv(e.key(key))
	if !found {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func (e *ENV) key(name string) string {
	if e.Config != nil && e.Config.Prefix != "" {
		return e.Config.Prefix + "_" + name
	}
	return name
}

// Parse parses environment variables to struct fields tagged `env:"KEY"`.
// Nested structs are scanned recursively; fields tagged "-" are skipped.
func (e *ENV) Parse(obj interface{}, validators ...func(interface{}) error) (err error) {
	defer lib.Recover(func(er error) {
		if er != nil {
			err = er
		}
	})
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr {
		return errors.New("object type is not pointer")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return errors.Errorf("object type is not struct <%s>", rv.Kind().String())
	}
	if err = e.scanStructENV(rv); err != nil {
		return err
	}
	for _, validator := range validators {
		if validator != nil {
			if err = validator(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *ENV) scanStructENV(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			if err := e.scanStructENV(field.Elem()); err != nil {
				return err
			}
		}
		if field.Kind() == reflect.Struct {
			if err := e.scanStructENV(field); err != nil {
				return err
			}
		}
		tag, ok := rv.Type().Field(i).Tag.Lookup(envTag)
		if !ok {
			continue
		}
		tags := strings.Split(tag, ",")
		if len(tags) == 0 || tags[0] == "-" || tags[0] == "" {
			continue
		}
		if err := e.getFieldENV(rv.Type().Field(i).Name, field, e.key(tags[0])); err != nil {
			return errors.Wrap(err, lib.StringTags("scan struct env"))
		}
	}
	return nil
}

func (e *ENV) getFieldENV(fieldName string, field reflect.Value, name string) error {
	s, found := os.LookupEnv(name)
	if !found {
		return nil
	}
	if !field.CanSet() {
		return errors.Errorf("field %s with type %s cant be set", fieldName,
			field.Kind())
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Errorf("field %s convert environment %s to %s failed",
				fieldName, s, field.Kind().String())
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i64, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return errors.Errorf("field %s convert environment %s to %s failed",
				fieldName, s, field.Kind().String())
		}
		field.SetInt(i64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u64, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return errors.Errorf("field %s convert environment %s to %s failed",
				fieldName, s, field.Kind().String())
		}
		field.SetUint(u64)
	case reflect.Float32, reflect.Float64:
		f64, err := strconv.ParseFloat(s, field.Type().Bits())
		if err != nil {
			return errors.Errorf("field %s convert environment %s to %s failed",
				fieldName, s, field.Kind().String())
		}
		field.SetFloat(f64)
	default:
		return errors.Errorf("field %s has unsupported type %s", fieldName,
			field.Kind())
	}
	return nil
}
