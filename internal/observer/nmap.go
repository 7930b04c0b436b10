package observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"github.com/jason790/lamplighter/internal/logger"
)

// hostStateUp is the nmap status of a responding host.
const hostStateUp = "up"

// errNoTargets is returned when a scanner has nothing to sweep.
var errNoTargets = errors.New("no scan targets configured")

// NmapScanner runs an nmap ping sweep (-sn -n -T5) over its targets.
// MAC addresses are only reported when nmap runs with root privileges on the
// local segment.
type NmapScanner struct {
	targets    []string
	binaryPath string
	timeout    time.Duration
}

// NmapOption configures an NmapScanner.
type NmapOption func(*NmapScanner)

// WithNmapBinary overrides the nmap executable.
func WithNmapBinary(path string) NmapOption {
	return func(s *NmapScanner) {
		s.binaryPath = path
	}
}

// WithNmapTimeout bounds a single sweep.
func WithNmapTimeout(d time.Duration) NmapOption {
	return func(s *NmapScanner) {
		s.timeout = d
	}
}

// NewNmapScanner creates a scanner sweeping targets (CIDR ranges or hosts).
func NewNmapScanner(targets []string, opts ...NmapOption) *NmapScanner {
	s := &NmapScanner{
		targets: targets,
		timeout: 2 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the scanner identifier.
func (s *NmapScanner) Name() string {
	return "nmap"
}

// Scan runs the sweep and returns the addresses and hostnames of hosts that are up.
func (s *NmapScanner) Scan(ctx context.Context) ([]string, error) {
	if len(s.targets) == 0 {
		return nil, errNoTargets
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	opts := []nmap.Option{
		nmap.WithTargets(s.targets...),
		nmap.WithPingScan(),
		nmap.WithDisabledDNSResolution(),
		nmap.WithTimingTemplate(nmap.TimingFastest),
	}

	if s.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(s.binaryPath))
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("nmap: %w: create scanner: %w", ErrInconclusive, err)
	}

	logger.DebugKV(ctx, "Searching for devices with nmap", "targets", s.targets)

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("nmap: %w: %w", ErrInconclusive, err)
	}

	if warnings != nil && len(*warnings) > 0 {
		logger.DebugKV(ctx, "nmap reported warnings", "warnings", *warnings)
	}

	return hostTokens(result), nil
}

// hostTokens flattens the addresses and hostnames of every host that is up.
func hostTokens(result *nmap.Run) []string {
	if result == nil {
		return nil
	}

	var tokens []string

	for _, host := range result.Hosts {
		if host.Status.State != hostStateUp {
			continue
		}

		for _, addr := range host.Addresses {
			tokens = append(tokens, addr.Addr)
		}

		for _, name := range host.Hostnames {
			tokens = append(tokens, name.Name)
		}
	}

	return tokens
}
