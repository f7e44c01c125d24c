package classifier

import (
	"errors"
	"testing"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
)

const orderPayload = `{
  "intent": "New order",
  "user_response": "Adding that to your cart.",
  "product_list": [
    {"product_name": "banana", "quantity": "2"},
    {"product_name": "milk", "quantity": ""}
  ],
  "sql_query": "INSERT INTO cart (product_name, quantity) VALUES ('banana', 2);"
}`

func TestDecodeOrderPayload(t *testing.T) {
	t.Parallel()

	ci, err := Decode(orderPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ci.Intent != contractx.IntentNewOrder {
		t.Fatalf("unexpected intent: %q", ci.Intent)
	}
	if len(ci.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(ci.Products))
	}
	if q := ci.Products[0].Quantity; !q.Set || q.Value != 2 {
		t.Fatalf("unexpected first quantity: %+v", q)
	}
	if ci.Products[1].Quantity.Set {
		t.Fatal("empty quantity must stay unspecified")
	}
	if ci.SQLQuery == "" {
		t.Fatal("sql suggestion should round-trip into the struct")
	}
}

func TestDecodeFencedPayloadMatchesUnfenced(t *testing.T) {
	t.Parallel()

	fenced := []string{
		"```json\n" + orderPayload + "\n```",
		"```\n" + orderPayload + "\n```",
		"```" + orderPayload + "```",
	}

	want, err := Decode(orderPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, raw := range fenced {
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw[:12], err)
		}
		if got.Intent != want.Intent || len(got.Products) != len(want.Products) {
			t.Fatalf("fenced decode diverged: %+v vs %+v", got, want)
		}
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"not json at all",
		"```json\nnot json either\n```",
		`{"intent": "New order"`,
	}
	for _, raw := range cases {
		_, err := Decode(raw)
		if !errors.Is(err, contractx.ErrClassification) {
			t.Fatalf("Decode(%q): expected ErrClassification, got %v", raw, err)
		}
	}
}

func TestDecodeUnknownIntentFallsBack(t *testing.T) {
	t.Parallel()

	ci, err := Decode(`{"intent": "Buy the moon", "user_response": "?"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ci.Intent != contractx.IntentUnrecognized {
		t.Fatalf("unknown intent must map to unrecognized, got %q", ci.Intent)
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"unfenced", `{"a":1}`, `{"a":1}`},
		{"fence with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StripFences(tc.input); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
