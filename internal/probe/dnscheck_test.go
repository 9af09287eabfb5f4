package probe

import (
	"testing"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

type fixedChecker struct {
	status domain.Status
	msg    string
}

func (f fixedChecker) Check(_ *domain.Monitor, hb *domain.Heartbeat) error {
	hb.Status, hb.Msg = f.status, f.msg
	return nil
}

func TestBrokerHost(t *testing.T) {
	cases := map[string]string{
		"broker.local":                "broker.local",
		"broker.local:1883":           "broker.local",
		"mqtt://broker.local":         "broker.local",
		"mqtts://broker.local:8883":   "broker.local",
		"wss://broker.local:443/mqtt": "broker.local",
		"10.0.0.1":                    "10.0.0.1",
	}
	for in, want := range cases {
		if got := BrokerHost(in); got != want {
			t.Errorf("BrokerHost(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckDNS_Literals(t *testing.T) {
	if s := CheckDNS("127.0.0.1"); s.Class != DNSIPLiteral {
		t.Fatalf("ip literal classified %q", s.Class)
	}
	if s := CheckDNS(""); s.Class != DNSInvalidName {
		t.Fatalf("empty host classified %q", s.Class)
	}
	if s := CheckDNS("bad host"); s.Class != DNSInvalidName {
		t.Fatalf("spaced host classified %q", s.Class)
	}
}

func TestDNSChecker_AnnotatesConnectErrors(t *testing.T) {
	var looked string
	d := &DNSChecker{
		Inner:  fixedChecker{domain.StatusDown, "Connection error - Topic: t; dial tcp: no such host"},
		Lookup: func(host string) DNSStatus {
			looked = host
			return DNSStatus{Host: host, Class: DNSNXDomain}
		},
	}
	var hb domain.Heartbeat
	if err := d.Check(&domain.Monitor{Hostname: "mqtt://nowhere.invalid"}, &hb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if looked != "nowhere.invalid" {
		t.Fatalf("looked up %q", looked)
	}
	if hb.Msg != "Connection error - Topic: t; dial tcp: no such host dns=NXDOMAIN" {
		t.Fatalf("msg = %q", hb.Msg)
	}
}

func TestDNSChecker_LeavesOtherVerdicts(t *testing.T) {
	for _, inner := range []fixedChecker{
		{domain.StatusUp, "Topic: t; Message: ok"},
		{domain.StatusDown, "Timeout, message not received - Topic: t"},
	} {
		d := &DNSChecker{Inner: inner, Lookup: func(string) DNSStatus {
			t.Fatalf("lookup should not run for %q", inner.msg)
			return DNSStatus{}
		}}
		var hb domain.Heartbeat
		_ = d.Check(&domain.Monitor{Hostname: "h"}, &hb)
		if hb.Msg != inner.msg {
			t.Fatalf("msg changed to %q", hb.Msg)
		}
	}
}
