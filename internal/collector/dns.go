package collector

import (
	"context"
	"net"
	"spyosint/internal/models"
	"strings"
)

// Resolver DNS lookups used by the whois adapter. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// collectDNSRecords live DNS records of a domain. Lookup failures leave the
// corresponding record type empty.
func collectDNSRecords(ctx context.Context, r Resolver, domain string) models.RecordSet {
	var records models.RecordSet

	if addrs, err := r.LookupIPAddr(ctx, domain); err == nil {
		for _, addr := range addrs {
			if addr.IP.To4() != nil {
				records.A = append(records.A, addr.IP.String())
			} else {
				records.AAAA = append(records.AAAA, addr.IP.String())
			}
		}
	}

	if mxRecords, err := r.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxRecords {
			records.MX = append(records.MX, strings.TrimSuffix(mx.Host, "."))
		}
	}

	if nsRecords, err := r.LookupNS(ctx, domain); err == nil {
		for _, ns := range nsRecords {
			records.NS = append(records.NS, strings.TrimSuffix(ns.Host, "."))
		}
	}

	if txtRecords, err := r.LookupTXT(ctx, domain); err == nil {
		records.TXT = txtRecords
	}

	if cname, err := r.LookupCNAME(ctx, domain); err == nil {
		cname = strings.TrimSuffix(cname, ".")
		if cname != "" && !strings.EqualFold(cname, domain) {
			records.CNAME = append(records.CNAME, cname)
		}
	}

	return records
}
