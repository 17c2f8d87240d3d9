// Package sstv holds the slow-scan television mode engine: the protocol catalog, the
// calibration header and the per-family scan line writers.
package sstv

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProtocol is returned when a name or VIS code matches no catalog entry.
	ErrUnknownProtocol = errors.New("unknown SSTV protocol")
	// ErrImageSize is returned when an image does not match a protocol's native size.
	ErrImageSize = errors.New("image size does not match protocol")
	// ErrState is returned when a Mode method is called out of order.
	ErrState = errors.New("mode called out of order")
)

// Protocol identifies one entry of the catalog.
type Protocol int

const (
	Martin1 Protocol = iota
	Martin2
	Scottie1
	Scottie2
	ScottieDX
	Robot36
	Robot72
	PD50
	PD90
	PD120
	PD160
	PD180
	PD240
	PD290
	WraaseSC2180

	numProtocols
)

// Protocols lists every supported protocol in catalog order.
func Protocols() []Protocol {
	ps := make([]Protocol, 0, numProtocols)
	for p := range numProtocols {
		ps = append(ps, p)
	}
	return ps
}

func (p Protocol) valid() bool { return p >= 0 && p < numProtocols }

// Descriptor returns the catalog entry for p, or nil if p is out of range.
func (p Protocol) Descriptor() *Descriptor {
	if !p.valid() {
		return nil
	}
	return &catalog[p]
}

func (p Protocol) String() string {
	if !p.valid() {
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
	return catalog[p].Name
}

// MarshalText lets protocols appear by name in YAML, JSON and flags.
func (p Protocol) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProtocol, int(p))
	}
	return []byte(catalog[p].Key), nil
}

func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// ParseProtocol accepts a catalog key ("robot36"), full name ("Robot 36"),
// short name ("R36") in any case, with spaces, dashes and underscores ignored.
func ParseProtocol(name string) (Protocol, error) {
	n := normalize(name)
	if n == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownProtocol)
	}
	for i := range catalog {
		d := &catalog[i]
		if n == normalize(d.Key) || n == normalize(d.Name) || n == normalize(d.ShortName) {
			return d.Protocol, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
}

// ProtocolForVIS looks a protocol up by its 7-bit VIS code.
func ProtocolForVIS(vis uint8) (Protocol, error) {
	for i := range catalog {
		if catalog[i].VIS == vis {
			return catalog[i].Protocol, nil
		}
	}
	return 0, fmt.Errorf("%w: VIS %d", ErrUnknownProtocol, vis)
}
