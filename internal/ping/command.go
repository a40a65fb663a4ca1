package ping

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// Command returns the executable and arguments that probe target continuously.
func (p Profile) Command(target string) (string, []string) {
	args := make([]string, 0, len(p.Args)+1)
	args = append(args, p.Args...)
	args = append(args, ProbeAddress(target))
	return p.Binary, args
}

// ProbeAddress converts internationalized hostnames to their ASCII form.
// IP literals and names IDNA rejects are passed through untouched so the
// ping utility reports the problem itself.
func ProbeAddress(target string) string {
	target = strings.TrimSpace(target)
	if net.ParseIP(target) != nil {
		return target
	}
	ascii, err := idna.Lookup.ToASCII(target)
	if err != nil || ascii == "" {
		return target
	}
	return ascii
}
