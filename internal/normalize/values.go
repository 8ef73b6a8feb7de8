package normalize

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"chat-session/internal/models"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// unixMillisThreshold separates second from millisecond epoch values.
const unixMillisThreshold = 1e11

func intOf(doc gjson.Result, f Field) int {
	v, ok := f.Lookup(doc)
	if !ok {
		return 0
	}
	switch v.Type {
	case gjson.Number, gjson.String:
		return int(v.Int())
	}
	return 0
}

func stringOf(doc gjson.Result, f Field) string {
	v, ok := f.Lookup(doc)
	if !ok {
		return ""
	}
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	}
	return ""
}

func boolOf(doc gjson.Result, f Field, fallback bool) bool {
	v, ok := f.Lookup(doc)
	if !ok {
		return fallback
	}
	switch v.Type {
	case gjson.True, gjson.False, gjson.Number:
		return v.Bool()
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "1", "si", "sí", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return fallback
}

func timeOf(doc gjson.Result, f Field, now func() time.Time) time.Time {
	v, ok := f.Lookup(doc)
	if ok {
		if t, ok := parseTime(v); ok {
			return t
		}
	}
	return now().UTC()
}

func parseTime(v gjson.Result) (time.Time, bool) {
	switch v.Type {
	case gjson.Number:
		n := v.Int()
		if n <= 0 {
			return time.Time{}, false
		}
		if float64(n) >= unixMillisThreshold {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

var messageTypeAliases = map[string]models.MessageType{
	"text":      models.TextMessage,
	"texto":     models.TextMessage,
	"image":     models.ImageMessage,
	"imagen":    models.ImageMessage,
	"file":      models.FileMessage,
	"archivo":   models.FileMessage,
	"documento": models.FileMessage,
	"audio":     models.AudioMessage,
	"voz":       models.AudioMessage,
	"system":    models.SystemMessage,
	"sistema":   models.SystemMessage,
}

var messageTypeCodes = map[int64]models.MessageType{
	1: models.TextMessage,
	2: models.ImageMessage,
	3: models.FileMessage,
	4: models.AudioMessage,
	5: models.SystemMessage,
}

func messageTypeOf(doc gjson.Result) models.MessageType {
	v, ok := MessageFields.Type.Lookup(doc)
	if !ok {
		return models.TextMessage
	}
	switch v.Type {
	case gjson.Number:
		if t, ok := messageTypeCodes[v.Int()]; ok {
			return t
		}
	case gjson.String:
		if t, ok := messageTypeAliases[strings.ToLower(strings.TrimSpace(v.Str))]; ok {
			return t
		}
	}
	return models.TextMessage
}
