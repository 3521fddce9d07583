package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

var (
	errMissingData      = errors.New("payload has no data key")
	errMissingID        = errors.New("record id is required")
	errMissingCreatedAt = errors.New("record created_at is required")
	errMissingText      = errors.New("record text is required")
)

// decodePayload parses one source file. A payload without a data key is
// reported with errMissingData so callers can skip it instead of failing.
func decodePayload(raw []byte) ([]map[string]any, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	data, ok := envelope["data"]
	if !ok {
		return nil, errMissingData
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			// Non-object entries have no id to attribute; keep a placeholder so
			// the caller can count them.
			out = append(out, nil)
			continue
		}
		out = append(out, fields)
	}
	return out, nil
}

// flatten turns nested objects into dotted keys, like a json_normalize of the
// API response, then strips configured namespace prefixes.
func flatten(fields map[string]any, stripPrefixes []string) map[string]any {
	flat := make(map[string]any, len(fields))
	flattenInto("", fields, flat)

	out := make(map[string]any, len(flat))
	for key, val := range flat {
		short := stripPrefix(key, stripPrefixes)
		if short != key {
			if _, exists := flat[short]; exists {
				// an unprefixed field of the same name wins
				continue
			}
		}
		out[short] = val
	}
	return out
}

func stripPrefix(key string, prefixes []string) string {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix)
		}
	}
	return key
}

func flattenInto(prefix string, in map[string]any, out map[string]any) {
	for key, val := range in {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(full, nested, out)
			continue
		}
		out[full] = val
	}
}

var knownFields = map[string]struct{}{
	"id":                 {},
	"created_at":         {},
	"text":               {},
	"reply_count":        {},
	"retweet_count":      {},
	"like_count":         {},
	"quote_count":        {},
	"impression_count":   {},
	"possibly_sensitive": {},
	"referenced_tweets":  {},
}

// buildRecord converts flattened fields into a typed Record. The returned
// reason is one of the Reason* constants when err is non-nil.
func buildRecord(fields map[string]any, outlet string, unescape bool) (record.Record, string, error) {
	rec := record.Record{Outlet: outlet}

	id, ok := stringField(fields["id"])
	if !ok || strings.TrimSpace(id) == "" {
		return rec, ReasonMissingField, errMissingID
	}
	rec.ID = strings.TrimSpace(id)

	createdAt, ok := fields["created_at"].(string)
	if !ok || strings.TrimSpace(createdAt) == "" {
		return rec, ReasonMissingField, errMissingCreatedAt
	}
	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return rec, ReasonInvalidTimestamp, err
	}
	rec.CreatedAt = ts

	text, ok := fields["text"].(string)
	if !ok {
		return rec, ReasonMissingField, errMissingText
	}
	if unescape {
		text = html.UnescapeString(text)
	}
	rec.Text = text

	rec.ReplyCount = counterField(fields["reply_count"])
	rec.RetweetCount = counterField(fields["retweet_count"])
	rec.LikeCount = counterField(fields["like_count"])
	rec.QuoteCount = counterField(fields["quote_count"])
	rec.ImpressionCount = counterField(fields["impression_count"])

	if sensitive, ok := fields["possibly_sensitive"].(bool); ok {
		rec.PossiblySensitive = sensitive
	}
	rec.ReferencedTweets = references(fields["referenced_tweets"])

	for key, val := range fields {
		if _, known := knownFields[key]; known {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[key] = val
	}
	return rec, "", nil
}

// parseTimestamp accepts RFC3339 first and falls back to dateparse for the
// looser formats some exports carry. The result is always UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return ts.UTC(), nil
}

func stringField(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

func counterField(v any) *int64 {
	num, ok := v.(json.Number)
	if !ok {
		return nil
	}
	n, err := num.Int64()
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func references(v any) []record.Reference {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	refs := make([]record.Reference, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ref := record.Reference{}
		ref.Type, _ = obj["type"].(string)
		ref.ID, _ = stringField(obj["id"])
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}
