// Package envconfig читает настройки сервисов из переменных окружения.
// Некорректные значения не роняют запуск: остаётся значение по умолчанию, а причина попадает в warnings.
package envconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lookup: сигнатура os.LookupEnv.
type Lookup func(key string) (string, bool)

// Reader накапливает предупреждения о некорректных переменных.
type Reader struct {
	lookup   Lookup
	warnings []string
}

// NewReader создаёт Reader поверх lookup.
func NewReader(lookup Lookup) *Reader {
	return &Reader{lookup: lookup}
}

// Warnings возвращает предупреждения в порядке чтения переменных.
func (r *Reader) Warnings() []string {
	return r.warnings
}

func (r *Reader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *Reader) warn(key, raw string, err error) {
	r.warnings = append(r.warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
}

// String записывает непустое значение key в dst.
func (r *Reader) String(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

// Lower как String, но приводит значение к нижнему регистру.
func (r *Reader) Lower(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = strings.ToLower(v)
	}
}

// List разбирает список через запятую, пустые элементы отбрасываются.
func (r *Reader) List(key string, dst *[]string) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		r.warn(key, v, errors.New("empty list"))
		return
	}
	*dst = items
}

// Bool записывает в dst булево значение key.
func (r *Reader) Bool(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := ParseBool(v)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = parsed
}

// Int записывает в dst целое значение key, если оно проходит valid.
func (r *Reader) Int(key string, dst *int, valid func(int) bool, rule string) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := ParseInt(v, valid, rule)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = parsed
}

// Duration записывает в dst длительность key, если она проходит valid.
func (r *Reader) Duration(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := ParseDuration(v, valid, rule)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = parsed
}

// Quantities разбирает пары вида "sku=qty,sku=qty".
func (r *Reader) Quantities(key string, dst *map[string]int64) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := ParseQuantities(v)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = parsed
}

// ParseBool понимает true/false, 1/0, yes/no, on/off без учёта регистра.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

// ParseInt разбирает целое и проверяет его правилом valid.
func ParseInt(raw string, valid func(int) bool, rule string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

// ParseDuration разбирает time.Duration и проверяет её правилом valid.
func ParseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

// ParseQuantities разбирает "sku=qty,sku=qty". Количество не может быть отрицательным.
func ParseQuantities(raw string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sku, qty, found := strings.Cut(pair, "=")
		sku = strings.TrimSpace(sku)
		if !found || sku == "" {
			return nil, fmt.Errorf("pair %q must look like sku=quantity", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(qty), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("quantity for %s: %w", sku, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("quantity for %s must be >= 0", sku)
		}
		out[sku] = n
	}
	if len(out) == 0 {
		return nil, errors.New("no sku=quantity pairs")
	}
	return out, nil
}

// Positive: правило для Int: значение > 0.
func Positive(v int) bool { return v > 0 }

// NonNegative: правило для Int: значение >= 0.
func NonNegative(v int) bool { return v >= 0 }

// PositiveDuration: правило для Duration: значение > 0.
func PositiveDuration(v time.Duration) bool { return v > 0 }

// NonNegativeDuration: правило для Duration: значение >= 0.
func NonNegativeDuration(v time.Duration) bool { return v >= 0 }
