package overseer

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestNewDecFromString(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", "0", true},
		{"1", "1", true},
		{"0.5", "0.5", true},
		{"1.25", "1.25", true},
		{".5", "0.5", true},
		{"0.000000000000000001", "0.000000000000000001", true},
		{"123456789.987654321", "123456789.987654321", true},
		{"-1", "", false},
		{"", "", false},
		{"abc", "", false},
		{"1.0000000000000000001", "", false},
	}
	for _, tc := range cases {
		d, err := NewDecFromString(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("parse %q: unexpected err %v", tc.in, err)
		}
		if err != nil {
			continue
		}
		if d.String() != tc.want {
			t.Fatalf("parse %q: got %q want %q", tc.in, d.String(), tc.want)
		}
	}
}

func TestDecMulIntFloors(t *testing.T) {
	if got := MustDec("0.5").MulInt(big.NewInt(7)); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("0.5 * 7 = %s, want 3", got)
	}
	if got := MustDec("0.3").MulInt(big.NewInt(10)); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("0.3 * 10 = %s, want 3", got)
	}
	if got := MustDec("2").MulInt(nil); got.Sign() != 0 {
		t.Fatalf("nil operand should give 0, got %s", got)
	}
}

func TestDecFromRatio(t *testing.T) {
	if got := DecFromRatio(big.NewInt(1), big.NewInt(2)); got.Cmp(MustDec("0.5")) != 0 {
		t.Fatalf("1/2 = %s", got)
	}
	if got := DecFromRatio(big.NewInt(1), big.NewInt(0)); !got.IsZero() {
		t.Fatalf("division by zero should give 0, got %s", got)
	}
	if got := DecFromRatio(big.NewInt(-1), big.NewInt(2)); !got.IsZero() {
		t.Fatalf("negative numerator should give 0, got %s", got)
	}
}

func TestDecSubClampsAtZero(t *testing.T) {
	if got := MustDec("0.3").Sub(MustDec("0.5")); !got.IsZero() {
		t.Fatalf("expected clamped 0, got %s", got)
	}
	if got := MustDec("0.5").Sub(MustDec("0.3")); got.Cmp(MustDec("0.2")) != 0 {
		t.Fatalf("0.5 - 0.3 = %s", got)
	}
}

func TestDecQuoUint64(t *testing.T) {
	if got := MustDec("0.0001").QuoUint64(100); got.Cmp(MustDec("0.000001")) != 0 {
		t.Fatalf("0.0001 / 100 = %s", got)
	}
	if got := MustDec("1").QuoUint64(0); !got.IsZero() {
		t.Fatalf("division by zero should give 0, got %s", got)
	}
}

func TestDecJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Rate Dec `json:"rate"`
	}
	raw, err := json.Marshal(wrapper{Rate: MustDec("0.000001")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"rate":"0.000001"}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var decoded wrapper
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Rate.Cmp(MustDec("0.000001")) != 0 {
		t.Fatalf("round trip mismatch: %s", decoded.Rate)
	}
}

func TestZeroValueDecIsUsable(t *testing.T) {
	var d Dec
	if !d.IsZero() {
		t.Fatal("zero value should report zero")
	}
	if got := d.Add(OneDec()); got.Cmp(OneDec()) != 0 {
		t.Fatalf("0 + 1 = %s", got)
	}
	if d.String() != "0" {
		t.Fatalf("zero value renders %q", d.String())
	}
}
