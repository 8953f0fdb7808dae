package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Теги полей Config:
//
//	env     - имя переменной окружения
//	default - значение, если переменная не задана или отвергнута
//	min     - нижняя граница для int
const (
	tagEnv     = "env"
	tagDefault = "default"
	tagMin     = "min"
)

// lookupEnv отдает значение без пробелов по краям. Пустая переменная считается незаданной.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// envConfig заполняет поля структуры из окружения. Неверное значение пишется в лог,
// поле при этом остается со значением из тега default.
func envConfig(s any) {
	v := reflect.ValueOf(s).Elem()
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := typ.Field(i)
		key := field.Tag.Get(tagEnv)
		if key == "" {
			continue
		}

		if def, ok := field.Tag.Lookup(tagDefault); ok {
			if err := setField(v.Field(i), field, def); err != nil {
				panic(fmt.Sprintf("config: bad default for %s: %v", field.Name, err))
			}
		}

		raw, ok := lookupEnv(key)
		if !ok {
			continue
		}
		if err := setField(v.Field(i), field, raw); err != nil {
			slog.Warn("Config value rejected, default kept",
				slog.String("env", key),
				slog.String("value", maskValue(field.Name, raw)),
				"err", err,
			)
			continue
		}

		slog.Info("Set config value",
			slog.String("key", typ.Name()+"."+field.Name),
			slog.String("value", maskValue(field.Name, raw)),
			slog.String("source", "ENVIRONMENT"),
		)
	}
}

func setField(f reflect.Value, field reflect.StructField, raw string) error {
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("not an integer")
		}
		if m, ok := field.Tag.Lookup(tagMin); ok {
			if lo, err := strconv.Atoi(m); err == nil && n < lo {
				return fmt.Errorf("below minimum %d", lo)
			}
		}
		f.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("not a boolean")
		}
		f.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

// maskValue скрывает секреты в логах, оставляя первый и последний символ
func maskValue(field, value string) string {
	name := strings.ToLower(field)
	if !strings.Contains(name, "pass") && !strings.Contains(name, "secret") && !strings.Contains(name, "token") {
		return value
	}
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
