package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

type DNSClass string

const (
	DNSResolves    DNSClass = "RESOLVES"
	DNSNXDomain    DNSClass = "NXDOMAIN"
	DNSNoARecord   DNSClass = "NO_A_RECORD"
	DNSServfail    DNSClass = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName DNSClass = "INVALID_NAME"
	DNSIPLiteral   DNSClass = "IP_LITERAL"
)

type DNSStatus struct {
	Host          string
	Class         DNSClass
	IPs           []net.IP
	CNAME         string
	Nameservers   []string
	ResolverError string
}

var dnsTimeout = 3 * time.Second

// CheckDNS classifies how host resolves.
func CheckDNS(host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.ContainsAny(s.Host, "/:@ ") {
		s.Class = DNSInvalidName
		return s
	}
	if ip := net.ParseIP(s.Host); ip != nil {
		s.IPs = []net.IP{ip}
		s.Class = DNSIPLiteral
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()
	r := &net.Resolver{}

	ips, err := r.LookupIP(ctx, "ip", s.Host)
	switch {
	case err == nil && len(ips) > 0:
		s.IPs = ips
		s.Class = DNSResolves
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServfail
			}
		}
	}

	if cname, err := r.LookupCNAME(ctx, s.Host); err == nil && !strings.EqualFold(cname, s.Host+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, s.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		switch {
		case len(s.Nameservers) > 0:
			s.Class = DNSNoARecord
		case s.ResolverError != "":
			s.Class = DNSServfail
		default:
			s.Class = DNSNXDomain
		}
	}
	return s
}

// BrokerHost extracts the host part of a monitor hostname, which may be a
// bare host or carry a scheme.
func BrokerHost(hostname string) string {
	if !strings.Contains(hostname, "://") {
		if h, _, err := net.SplitHostPort(hostname); err == nil {
			return h
		}
		return hostname
	}
	u, err := url.Parse(hostname)
	if err != nil || u.Hostname() == "" {
		return hostname
	}
	return u.Hostname()
}

// DNSChecker appends a DNS classification of the broker host to heartbeats
// whose probe could not connect, e.g. "... dns=NXDOMAIN".
type DNSChecker struct {
	Inner  Checker
	Lookup func(host string) DNSStatus
}

func NewDNSChecker(inner Checker) *DNSChecker {
	return &DNSChecker{Inner: inner, Lookup: CheckDNS}
}

func (d *DNSChecker) Check(m *domain.Monitor, hb *domain.Heartbeat) error {
	if err := d.Inner.Check(m, hb); err != nil {
		return err
	}
	if hb.IsUp() || !strings.HasPrefix(hb.Msg, domain.KindConnect.String()) {
		return nil
	}
	dns := d.Lookup(BrokerHost(m.Hostname))
	hb.Msg = fmt.Sprintf("%s dns=%s", hb.Msg, dns.Class)
	return nil
}
