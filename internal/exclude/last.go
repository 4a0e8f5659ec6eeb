package exclude

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

var reIPv4 = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// KnownIPs extracts source addresses from `last -i` output. The third column
// of each login record holds the origin; anything that is not a dotted quad
// (console logins, reboots) is ignored.
func KnownIPs(output string) []string {
	var ips []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		ip := parts[2]
		if !reIPv4.MatchString(ip) {
			continue
		}
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		ips = append(ips, ip)
	}
	return ips
}

// GatherKnownIPs runs `last -i` on the host. Any failure yields an empty
// list; a missing wtmp or absent binary must not block startup.
func GatherKnownIPs(ctx context.Context) []string {
	out, err := exec.CommandContext(ctx, "last", "-i").Output()
	if err != nil {
		return nil
	}
	return KnownIPs(string(out))
}
