// Package observer produces raw presence signals.
//
// ScanObserver counts configured devices found by a network Scanner (nmap,
// optionally backed by arp-scan), HeartbeatObserver reports how long ago each
// subject last checked in. Transport failures are reported as ErrInconclusive
// and must never be read as "nobody is home".
package observer
