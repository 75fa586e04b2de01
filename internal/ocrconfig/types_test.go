package ocrconfig

import (
	"errors"
	"reflect"
	"testing"
)

func TestKeyLevel(t *testing.T) {
	tests := []struct {
		key  Key
		want Level
	}{
		{Key{Module: "FREIGHT"}, LevelModule},
		{Key{Module: "FREIGHT", Consignor: "ACME"}, LevelConsignor},
		{Key{Module: "FREIGHT", Consignor: "ACME", Transporter: "FASTSHIP"}, LevelTransporter},
	}
	for _, tt := range tests {
		if got := tt.key.Level(); got != tt.want {
			t.Errorf("%+v.Level() = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNewKeyTrimsBlanks(t *testing.T) {
	got := NewKey(" FREIGHT ", "  ", "")
	if got != (Key{Module: "FREIGHT"}) {
		t.Errorf("NewKey = %+v", got)
	}
}

func TestKeyValidate(t *testing.T) {
	if err := (Key{}).Validate(); !errors.Is(err, ErrModuleRequired) {
		t.Errorf("Validate() = %v, want ErrModuleRequired", err)
	}
	if err := (Key{Module: "M"}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Module: "FREIGHT", Consignor: "ACME", Transporter: "FASTSHIP"}
	if got := k.String(); got != "FREIGHT > ACME > FASTSHIP" {
		t.Errorf("String() = %q", got)
	}
}

func TestCandidates(t *testing.T) {
	m := Key{Module: "M"}
	mc := Key{Module: "M", Consignor: "C"}
	mct := Key{Module: "M", Consignor: "C", Transporter: "T"}

	tests := []struct {
		name string
		key  Key
		want []Key
	}{
		{"full key", mct, []Key{mct, mc, m}},
		{"consignor only", mc, []Key{mc, m}},
		{"module only", m, []Key{m}},
		{"transporter without consignor", Key{Module: "M", Transporter: "T"}, []Key{m}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Candidates(tt.key); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates = %+v, want %+v", got, tt.want)
			}
		})
	}
}
