package caseconv

import "testing"

func TestConvertPreservesAtTypeKey(t *testing.T) {
	in := map[string]any{
		"@type":        "/cosmos.bank.v1beta1.MsgSend",
		"from_address": "cosmos1abc",
		"Amount": []any{
			map[string]any{"Denom": "uatom", "Amount": "10"},
		},
	}

	out := Convert(in, Camel).(map[string]any)
	if out["@type"] != "/cosmos.bank.v1beta1.MsgSend" {
		t.Fatalf("@type key was renamed: %v", out["@type"])
	}
	if _, ok := out["fromAddress"]; !ok {
		t.Fatalf("expected fromAddress key, got %v", out)
	}
	nested := out["amount"].([]any)[0].(map[string]any)
	if _, ok := nested["denom"]; !ok {
		t.Fatalf("expected nested denom key, got %v", nested)
	}
}

func TestConvertToSnake(t *testing.T) {
	in := map[string]any{"fromAddress": "x", "@type": "/t"}
	out := Convert(in, Snake).(map[string]any)
	if _, ok := out["from_address"]; !ok {
		t.Fatalf("expected from_address key, got %v", out)
	}
	if out["@type"] != "/t" {
		t.Fatalf("@type key was renamed: %v", out)
	}
}

func TestToSnakeIdempotent(t *testing.T) {
	if got := toSnake("already_snake"); got != "already_snake" {
		t.Fatalf("toSnake changed an already-snake key: %q", got)
	}
}

func TestToCamelIdempotent(t *testing.T) {
	if got := toCamel("alreadyCamel"); got != "alreadyCamel" {
		t.Fatalf("toCamel changed an already-camel key: %q", got)
	}
}
