package config

import (
	"testing"

	"github.com/sandpiper-dns/adns/rrtype"
)

func TestParseRDataA(t *testing.T) {
	rdata, err := ParseRData(rrtype.TypeA, "192.0.2.1")
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	want := []byte{192, 0, 2, 1}
	if string(rdata) != string(want) {
		t.Fatalf("got %v, want %v", rdata, want)
	}
}

func TestParseRDataAAAA(t *testing.T) {
	rdata, err := ParseRData(rrtype.TypeAAAA, "2001:db8::1")
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	if len(rdata) != 16 {
		t.Fatalf("len(rdata) = %d, want 16", len(rdata))
	}
}

func TestParseRDataMX(t *testing.T) {
	rdata, err := ParseRData(rrtype.TypeMX, "10 mail.example.com.")
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	if rdata[0] != 0 || rdata[1] != 10 {
		t.Fatalf("preference bytes = %v, want [0 10]", rdata[:2])
	}
}

func TestParseRDataTXT(t *testing.T) {
	rdata, err := ParseRData(rrtype.TypeTXT, `"hello world"`)
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	if rdata[0] != 11 || string(rdata[1:]) != "hello world" {
		t.Fatalf("got %v", rdata)
	}
}

func TestParseRDataNS(t *testing.T) {
	rdata, err := ParseRData(rrtype.TypeNS, "ns1.example.com.")
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	if len(rdata) == 0 {
		t.Fatalf("expected non-empty rdata")
	}
}

func TestParseRDataUnknownTypeFallsBackToHex(t *testing.T) {
	rdata, err := ParseRData(65280, "deadbeef")
	if err != nil {
		t.Fatalf("ParseRData: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if string(rdata) != string(want) {
		t.Fatalf("got %v, want %v", rdata, want)
	}
}

func TestParseRDataBadIPv4(t *testing.T) {
	if _, err := ParseRData(rrtype.TypeA, "not-an-ip"); err == nil {
		t.Fatalf("expected error for malformed A rdata")
	}
}
