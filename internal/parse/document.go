package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// The structured document has one object per weekday, each holding the four
// boundaries as {"hours": H, "minutes": M}:
//
//	{"monday": {"doze": {"hours": 6, "minutes": 15}, "wake": {...}, "day": {...}, "sleep": {...}}, ...}

const (
	keyHours   = "hours"
	keyMinutes = "minutes"
)

// ParseDocument parses a JSON schedule document.
func ParseDocument(payload []byte) (schedule.Week, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return schedule.Week{}, &Error{Kind: ErrMalformedDocument, Detail: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return schedule.Week{}, &Error{Kind: ErrMalformedDocument, Detail: "trailing data after document"}
	}
	return weekFromTree(root)
}

// ParseYAML parses the same document written as YAML.
func ParseYAML(payload []byte) (schedule.Week, error) {
	var root any
	if err := yaml.Unmarshal(payload, &root); err != nil {
		return schedule.Week{}, &Error{Kind: ErrMalformedDocument, Detail: err.Error()}
	}
	return weekFromTree(root)
}

func weekFromTree(root any) (schedule.Week, error) {
	if root == nil {
		return schedule.Week{}, &Error{Kind: ErrMalformedDocument, Detail: "empty document"}
	}
	top, ok := root.(map[string]any)
	if !ok {
		return schedule.Week{}, &Error{Kind: ErrWrongType, Field: "$", Detail: "document must be an object"}
	}
	if err := rejectUnknownDays(top); err != nil {
		return schedule.Week{}, err
	}

	var days [schedule.DaysPerWeek]schedule.DayEntry
	for d := range days {
		key := schedule.DocumentKey(d)
		day, err := object(top, key, key)
		if err != nil {
			return schedule.Week{}, err
		}
		for _, b := range schedule.Boundaries {
			path := key + "." + b.String()
			ev, err := object(day, b.String(), path)
			if err != nil {
				return schedule.Week{}, err
			}
			hours, err := integer(ev, keyHours, path+"."+keyHours, 23)
			if err != nil {
				return schedule.Week{}, err
			}
			minutes, err := integer(ev, keyMinutes, path+"."+keyMinutes, 59)
			if err != nil {
				return schedule.Week{}, err
			}
			days[d].Set(b, schedule.At(hours, minutes))
		}
	}
	return schedule.Seal(days), nil
}

func rejectUnknownDays(top map[string]any) error {
	known := make(map[string]bool, schedule.DaysPerWeek)
	for d := 0; d < schedule.DaysPerWeek; d++ {
		known[schedule.DocumentKey(d)] = true
	}
	var unknown []string
	for k := range top {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &Error{Kind: ErrUnexpectedField, Field: unknown[0]}
}

// lookup returns the value under key and whether it was present at all.
// A present null counts as absent.
func lookup(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func object(m map[string]any, key, path string) (map[string]any, error) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, &Error{Kind: ErrMissingField, Field: path}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Kind: ErrWrongType, Field: path, Detail: fmt.Sprintf("want object, got %T", v)}
	}
	return obj, nil
}

func integer(m map[string]any, key, path string, limit int) (int, error) {
	v, ok := lookup(m, key)
	if !ok {
		return 0, &Error{Kind: ErrMissingField, Field: path}
	}
	n, ok := asInt(v)
	if !ok {
		return 0, &Error{Kind: ErrWrongType, Field: path, Detail: fmt.Sprintf("want integer, got %v", v)}
	}
	if n < 0 || n > int64(limit) {
		return 0, &Error{Kind: ErrOutOfRange, Field: path, Detail: fmt.Sprintf("%d not in 0..%d", n, limit)}
	}
	return int(n), nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > 1<<31 {
			n = 1 << 31
		}
		return int64(n), true
	}
	return 0, false
}
