package frontmatter

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseWithoutMetadataBlock(t *testing.T) {
	raw := []byte("# Hello\n\nNo metadata here.\n")

	meta, body := Parse(raw)
	if len(meta) != 0 {
		t.Fatalf("expected empty metadata, got %#v", meta)
	}
	if !bytes.Equal(body, raw) {
		t.Fatalf("expected body to equal raw input, got %q", body)
	}
}

func TestParseMalformedBlockFallsBack(t *testing.T) {
	raw := []byte("---\ntitle: [unclosed\n---\nbody\n")

	meta, body := Parse(raw)
	if len(meta) != 0 {
		t.Fatalf("expected empty metadata for malformed block, got %#v", meta)
	}
	if !bytes.Equal(body, raw) {
		t.Fatalf("expected full raw content as body, got %q", body)
	}
}

func TestStringifyEmptyMetadataReturnsBody(t *testing.T) {
	body := []byte("plain body\n")

	raw, err := Stringify(body, nil)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if !bytes.Equal(raw, body) {
		t.Fatalf("expected body unchanged, got %q", raw)
	}
}

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	body := []byte("# Heading\n\nSome *markdown* body.\n\n- a\n- b\n")
	meta := map[string]any{
		"id":          "0b5e1f6c-9a1d-4f7e-8c2b-1a2b3c4d5e6f",
		"title":       "Heading",
		"status":      "draft",
		"tags":        []any{"go", "notes"},
		"x_rating":    5,
		"x_series":    "field the schema knows nothing about",
		"x_truthy":    true,
		"nested_blob": map[string]any{"k": "v", "n": 2},
	}

	raw, err := Stringify(body, meta)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}

	gotMeta, gotBody := Parse(raw)
	if !bytes.Equal(gotBody, body) {
		t.Fatalf("body mismatch:\nwant %q\ngot  %q", body, gotBody)
	}
	if !reflect.DeepEqual(flatten(gotMeta), flatten(meta)) {
		t.Fatalf("metadata mismatch:\nwant %#v\ngot  %#v", meta, gotMeta)
	}
}

func TestParseNormalizesNestedMappings(t *testing.T) {
	raw := []byte("---\nouter:\n  inner:\n    k: v\n  list:\n    - k: v\n---\nbody\n")

	meta, _ := Parse(raw)
	outer, ok := meta["outer"].(map[string]any)
	if !ok {
		t.Fatalf("outer mapping has type %T, want map[string]any", meta["outer"])
	}
	if _, ok := outer["inner"].(map[string]any); !ok {
		t.Fatalf("inner mapping has type %T, want map[string]any", outer["inner"])
	}
	list, ok := outer["list"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected list value %#v", outer["list"])
	}
	if _, ok := list[0].(map[string]any); !ok {
		t.Fatalf("mapping inside sequence has type %T, want map[string]any", list[0])
	}
}

func TestRepeatedCyclesAreStable(t *testing.T) {
	body := []byte("body text\n")
	meta := map[string]any{
		"title":    "Stable",
		"custom_b": "two",
		"custom_a": "one",
	}

	first, err := Stringify(body, meta)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}

	parsedMeta, parsedBody := Parse(first)
	second, err := Stringify(parsedBody, parsedMeta)
	if err != nil {
		t.Fatalf("second Stringify: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("serialization not stable:\nfirst  %q\nsecond %q", first, second)
	}
}

func TestReservedKeysSerializeFirst(t *testing.T) {
	raw, err := Stringify([]byte("b\n"), map[string]any{
		"zz_custom": 1,
		"title":     "Order",
		"id":        "abc",
	})
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}

	idIdx := bytes.Index(raw, []byte("id:"))
	titleIdx := bytes.Index(raw, []byte("title:"))
	customIdx := bytes.Index(raw, []byte("zz_custom:"))
	if idIdx < 0 || titleIdx < 0 || customIdx < 0 {
		t.Fatalf("missing keys in output: %q", raw)
	}
	if !(idIdx < titleIdx && titleIdx < customIdx) {
		t.Fatalf("unexpected key order in output: %q", raw)
	}
}

// flatten erases int/int64 and []any differences introduced by YAML.
func flatten(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = flattenValue(v)
	}
	return out
}

func flattenValue(v any) any {
	switch tv := v.(type) {
	case int64:
		return int(tv)
	case []any:
		items := make([]any, len(tv))
		for i, item := range tv {
			items[i] = flattenValue(item)
		}
		return items
	case map[string]any:
		return flatten(tv)
	default:
		return v
	}
}
