package ping

import (
	"regexp"
	"runtime"
	"strconv"
)

// ReadingKind classifies one line of ping output.
type ReadingKind int

const (
	Unrecognized ReadingKind = iota
	Success
	Timeout
)

func (k ReadingKind) String() string {
	switch k {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	default:
		return "unrecognized"
	}
}

// Reading is the parsed form of a single output line. Latency is in
// milliseconds and only meaningful for Success.
type Reading struct {
	Kind    ReadingKind
	Latency float64
}

// Profile describes how to run and read the platform ping utility.
type Profile struct {
	Name    string
	Binary  string
	Args    []string // placed before the target
	Success *regexp.Regexp
	Timeout *regexp.Regexp
}

var (
	windowsSuccess = regexp.MustCompile(`time[=<]([0-9]+(?:\.[0-9]+)?)\s?ms`)
	posixSuccess   = regexp.MustCompile(`time=([0-9]+(?:\.[0-9]+)?)\s*ms`)
	windowsTimeout = regexp.MustCompile(`(?i)request timed out`)
	linuxTimeout   = regexp.MustCompile(`(?i)request timeout|no answer yet`)
	posixTimeout   = regexp.MustCompile(`(?i)request timeout`)
)

// ProfileFor returns the profile for the given GOOS value.
func ProfileFor(goos string) Profile {
	switch goos {
	case "windows":
		return Profile{
			Name:    "windows",
			Binary:  `C:\Windows\System32\ping.exe`,
			Args:    []string{"-t"},
			Success: windowsSuccess,
			Timeout: windowsTimeout,
		}
	case "linux", "android":
		// -O makes iputils report lost replies instead of staying silent.
		return Profile{
			Name:    "linux",
			Binary:  "ping",
			Args:    []string{"-O"},
			Success: posixSuccess,
			Timeout: linuxTimeout,
		}
	default:
		return Profile{
			Name:    "posix",
			Binary:  "ping",
			Success: posixSuccess,
			Timeout: posixTimeout,
		}
	}
}

// DefaultProfile returns the profile for the running host.
func DefaultProfile() Profile {
	return ProfileFor(runtime.GOOS)
}

// Parse classifies one line. It never fails: anything that is neither a
// reply nor a timeout is Unrecognized.
func (p Profile) Parse(line string) Reading {
	if m := p.Success.FindStringSubmatch(line); len(m) == 2 {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v < 0 {
			return Reading{Kind: Unrecognized}
		}
		return Reading{Kind: Success, Latency: v}
	}
	if p.Timeout.MatchString(line) {
		return Reading{Kind: Timeout}
	}
	return Reading{Kind: Unrecognized}
}

// WithOverrides returns a copy using binary (when non-empty) and extra
// arguments inserted ahead of the profile's own.
func (p Profile) WithOverrides(binary string, extraArgs []string) Profile {
	out := p
	if binary != "" {
		out.Binary = binary
	}
	if len(extraArgs) > 0 {
		args := make([]string, 0, len(extraArgs)+len(p.Args))
		args = append(args, extraArgs...)
		args = append(args, p.Args...)
		out.Args = args
	}
	return out
}
