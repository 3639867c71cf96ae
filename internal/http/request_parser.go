package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

const maxBodyBytes = 64 << 10

// errBadField reports a form value that could not be parsed.
var errBadField = errors.New("invalid field")

// RequestBodyParser reads a JSON object or a form-encoded body, the two
// shapes htmx and API clients send.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body once. JSON is detected from the first byte.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Amount parses a strictly positive amount field.
func (p *RequestBodyParser) Amount(key string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return decimal.Zero, fieldError(key, err)
	}
	return d, nil
}

// OptionalAmount parses a non-negative amount field. Blank and zero values yield zero.
func (p *RequestBodyParser) OptionalAmount(key string) (decimal.Decimal, error) {
	v := p.Get(key)
	if v == "" {
		return decimal.Zero, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ".")); err == nil && d.IsZero() {
		return decimal.Zero, nil
	}
	return p.Amount(key)
}

// Date parses a YYYY-MM-DD field, defaulting to fallback when blank.
func (p *RequestBodyParser) Date(key string, fallback core.Date) (core.Date, error) {
	v := p.Get(key)
	if v == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fieldError(key, err)
	}
	return d, nil
}

func (p *RequestBodyParser) Int(key string) (int, error) {
	n, err := strconv.Atoi(p.Get(key))
	if err != nil {
		return 0, fieldError(key, err)
	}
	return n, nil
}

func (p *RequestBodyParser) ID(key string) (int64, error) {
	n, err := strconv.ParseInt(p.Get(key), 10, 64)
	if err != nil || n < 1 {
		return 0, fieldError(key, errors.New("must be a positive integer"))
	}
	return n, nil
}

// Bool accepts checkbox "on" as well as true/1.
func (p *RequestBodyParser) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func (p *RequestBodyParser) Category(key string) (core.Category, error) {
	c, err := core.ParseCategory(p.Get(key))
	if err != nil {
		return "", fieldError(key, err)
	}
	return c, nil
}

func fieldError(key string, err error) error {
	return fmt.Errorf("%w %s: %w", errBadField, key, err)
}

// parsePeriod reads "YYYY-MM", defaulting to the month of now when blank.
func parsePeriod(s string, now time.Time) (core.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.PeriodOf(now), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Period{}, fieldError("period", err)
	}
	return core.PeriodOf(t), nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
