package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// documentFor renders w as the JSON document the structured parser expects.
func documentFor(w schedule.Week) map[string]any {
	doc := make(map[string]any)
	for d, entry := range w.Days {
		day := make(map[string]any)
		for _, b := range schedule.Boundaries {
			t := entry.Get(b)
			day[b.String()] = map[string]any{"hours": int(t.Hour), "minutes": int(t.Minute)}
		}
		doc[schedule.DocumentKey(d)] = day
	}
	return doc
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func testWeek() schedule.Week {
	days := schedule.DefaultWeek().Days
	days[4] = schedule.DayEntry{Doze: schedule.At(6, 45), Wake: schedule.At(7, 0), Day: schedule.At(7, 30), Sleep: schedule.At(20, 15)}
	return schedule.Seal(days)
}

func TestParseDocument(t *testing.T) {
	want := testWeek()
	got, err := ParseDocument(mustJSON(t, documentFor(want)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseDocumentMatchesText(t *testing.T) {
	fromText, err := ParseText([]byte(commentedPayload))
	require.NoError(t, err)

	fromDoc, err := ParseDocument(mustJSON(t, documentFor(fromText)))
	require.NoError(t, err)
	assert.Equal(t, fromText.Checksum, fromDoc.Checksum)
}

func TestParseDocumentRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   error
		field  string
	}{
		{
			name:   "missing day",
			mutate: func(doc map[string]any) { delete(doc, "thursday") },
			want:   ErrMissingField,
			field:  "thursday",
		},
		{
			name:   "null day",
			mutate: func(doc map[string]any) { doc["monday"] = nil },
			want:   ErrMissingField,
			field:  "monday",
		},
		{
			name:   "missing boundary",
			mutate: func(doc map[string]any) { delete(doc["friday"].(map[string]any), "wake") },
			want:   ErrMissingField,
			field:  "friday.wake",
		},
		{
			name: "missing minutes",
			mutate: func(doc map[string]any) {
				delete(doc["sunday"].(map[string]any)["sleep"].(map[string]any), "minutes")
			},
			want:  ErrMissingField,
			field: "sunday.sleep.minutes",
		},
		{
			name:   "day is not an object",
			mutate: func(doc map[string]any) { doc["tuesday"] = "0615|0630|0700|1845" },
			want:   ErrWrongType,
			field:  "tuesday",
		},
		{
			name: "hours is a string",
			mutate: func(doc map[string]any) {
				doc["monday"].(map[string]any)["doze"].(map[string]any)["hours"] = "6"
			},
			want:  ErrWrongType,
			field: "monday.doze.hours",
		},
		{
			name: "fractional minutes",
			mutate: func(doc map[string]any) {
				doc["monday"].(map[string]any)["day"].(map[string]any)["minutes"] = 7.5
			},
			want:  ErrWrongType,
			field: "monday.day.minutes",
		},
		{
			name: "hours out of range",
			mutate: func(doc map[string]any) {
				doc["saturday"].(map[string]any)["sleep"].(map[string]any)["hours"] = 24
			},
			want:  ErrOutOfRange,
			field: "saturday.sleep.hours",
		},
		{
			name: "negative minutes",
			mutate: func(doc map[string]any) {
				doc["wednesday"].(map[string]any)["wake"].(map[string]any)["minutes"] = -1
			},
			want:  ErrOutOfRange,
			field: "wednesday.wake.minutes",
		},
		{
			name:   "capitalised day",
			mutate: func(doc map[string]any) { doc["Monday"] = doc["monday"] },
			want:   ErrUnexpectedField,
			field:  "Monday",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := documentFor(testWeek())
			tt.mutate(doc)

			w, err := ParseDocument(mustJSON(t, doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, schedule.Week{}, w)
		})
	}
}

func TestParseDocumentMalformed(t *testing.T) {
	for _, payload := range []string{"", "{", "not json", `{"monday": {}} {"tuesday": {}}`} {
		_, err := ParseDocument([]byte(payload))
		assert.True(t, errors.Is(err, ErrMalformedDocument), "%q: %v", payload, err)
	}

	_, err := ParseDocument([]byte(`[1, 2, 3]`))
	assert.True(t, errors.Is(err, ErrWrongType), err)
}

func TestParseYAML(t *testing.T) {
	want := testWeek()
	var sb strings.Builder
	for d, entry := range want.Days {
		fmt.Fprintf(&sb, "%s:\n", schedule.DocumentKey(d))
		for _, b := range schedule.Boundaries {
			tod := entry.Get(b)
			fmt.Fprintf(&sb, "  %s: {hours: %d, minutes: %d}\n", b, tod.Hour, tod.Minute)
		}
	}

	got, err := ParseYAML([]byte(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseYAML([]byte(strings.Replace(sb.String(), "hours: 6,", "hours: six,", 1)))
	assert.True(t, errors.Is(err, ErrWrongType), err)

	_, err = ParseYAML([]byte("monday: [unterminated"))
	assert.True(t, errors.Is(err, ErrMalformedDocument), err)

	_, err = ParseYAML(nil)
	assert.True(t, errors.Is(err, ErrMalformedDocument), err)
}

func TestParseDispatch(t *testing.T) {
	w, err := Parse(KindText, []byte(commentedPayload))
	require.NoError(t, err)

	got, err := Parse(KindJSON, mustJSON(t, documentFor(w)))
	require.NoError(t, err)
	assert.Equal(t, w, got)

	_, err = Parse(Kind("xml"), nil)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindText, "TEXT": KindText, "json": KindJSON, "yml": KindYAML, " yaml ": KindYAML} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("toml")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKindFromContentType(t *testing.T) {
	assert.Equal(t, KindJSON, KindFromContentType("application/json; charset=utf-8"))
	assert.Equal(t, KindJSON, KindFromContentType("application/schedule+json"))
	assert.Equal(t, KindYAML, KindFromContentType("application/x-yaml"))
	assert.Equal(t, KindText, KindFromContentType("text/plain"))
	assert.Equal(t, KindText, KindFromContentType(""))
}
