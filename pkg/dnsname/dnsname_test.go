package dnsname

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded, err := EncodeRFC1035("host.example.org")
	if err != nil {
		t.Fatalf("EncodeRFC1035: %v", err)
	}
	names, err := DecodeRFC1035List(encoded)
	if err != nil {
		t.Fatalf("DecodeRFC1035List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"host.example.org"}) {
		t.Fatalf("got %v", names)
	}
}

func TestDecodeMultipleNames(t *testing.T) {
	var data []byte
	for _, n := range []string{"example.org", "second.domain.it"} {
		enc, err := EncodeRFC1035(n)
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, enc...)
	}
	names, err := DecodeRFC1035List(data)
	if err != nil {
		t.Fatalf("DecodeRFC1035List: %v", err)
	}
	want := []string{"example.org", "second.domain.it"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestDecodeTruncatedLabelErrors(t *testing.T) {
	if _, err := DecodeRFC1035List([]byte{6, 'd', 'o', 'm'}); err == nil {
		t.Fatal("expected an error for a truncated label")
	}
}

func TestEncodeRejectsOverlongLabel(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := EncodeRFC1035(string(long)); err == nil {
		t.Fatal("expected an error for a label over 63 bytes")
	}
}
