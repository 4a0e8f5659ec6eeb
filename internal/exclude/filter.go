package exclude

import "strings"

// Filter holds the operator-designated IPs exempt from counting. The set is
// built once at startup and never mutated afterwards.
type Filter struct {
	ips map[string]struct{}
}

func New(ips []string) *Filter {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		set[ip] = struct{}{}
	}
	return &Filter{ips: set}
}

// Excluded is exact-string membership; CIDR matching is out of scope.
func (f *Filter) Excluded(ip string) bool {
	_, ok := f.ips[ip]
	return ok
}

func (f *Filter) Size() int {
	return len(f.ips)
}
