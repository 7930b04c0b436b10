package observer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jason790/lamplighter/internal/logger"
)

// defaultArpScanBinary is looked up in PATH when no path is configured.
const defaultArpScanBinary = "arp-scan"

// ArpScanScanner runs arp-scan over its targets.
type ArpScanScanner struct {
	targets    []string
	binaryPath string
	iface      string
	timeout    time.Duration
}

// NewArpScanScanner creates a scanner. An empty binaryPath means arp-scan from PATH;
// an empty target list scans the local network.
func NewArpScanScanner(targets []string, binaryPath, iface string, timeout time.Duration) *ArpScanScanner {
	if binaryPath == "" {
		binaryPath = defaultArpScanBinary
	}

	return &ArpScanScanner{
		targets:    targets,
		binaryPath: binaryPath,
		iface:      iface,
		timeout:    timeout,
	}
}

// Name returns the scanner identifier.
func (s *ArpScanScanner) Name() string {
	return "arp-scan"
}

// Scan runs arp-scan and returns the IP and MAC address of every responder.
func (s *ArpScanScanner) Scan(ctx context.Context) ([]string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.DebugKV(ctx, "Searching for devices with arp-scan", "targets", s.targets)

	//nolint:gosec // The binary and arguments come from the settings file.
	cmd := exec.CommandContext(ctx, s.binaryPath, s.args()...)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("arp-scan: %w: %w", ErrInconclusive, err)
	}

	return parseArpScan(output), nil
}

func (s *ArpScanScanner) args() []string {
	args := make([]string, 0, len(s.targets)+2)
	if s.iface != "" {
		args = append(args, "--interface="+s.iface)
	}

	if len(s.targets) == 0 {
		return append(args, "--localnet")
	}

	return append(args, s.targets...)
}

// parseArpScan extracts "IP<tab>MAC<tab>vendor" rows from arp-scan output.
// Header and summary lines do not start with an IP address and are skipped.
func parseArpScan(output []byte) []string {
	var tokens []string

	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || net.ParseIP(fields[0]) == nil {
			continue
		}

		if _, err := net.ParseMAC(fields[1]); err != nil {
			continue
		}

		tokens = append(tokens, fields[0], fields[1])
	}

	return tokens
}
