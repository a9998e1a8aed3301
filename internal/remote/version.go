package remote

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is the wire protocol version this build of the remote
// package advertises and expects from peers.
const ProtocolVersion = "1.0.0"

// DefaultCompatibility is the constraint a Receiver checks an unfamiliar
// peer's advertised version against before trusting its frames.
const DefaultCompatibility = "^1.0.0"

// VersionGate checks a peer's advertised protocol version against a
// constraint, generalizing the teacher's use of Masterminds/semver for
// package-dependency resolution (internal/packagemanager/resolver.go) to a
// wire-protocol compatibility check (spec §4.7's implicit handshake).
type VersionGate struct {
	constraint *semver.Constraints
}

// NewVersionGate parses constraintExpr (e.g. "^1.0.0") into a VersionGate.
func NewVersionGate(constraintExpr string) (*VersionGate, error) {
	c, err := semver.NewConstraint(constraintExpr)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid protocol constraint %q: %w", constraintExpr, err)
	}
	return &VersionGate{constraint: c}, nil
}

// Check reports whether peerVersion satisfies the gate's constraint.
func (g *VersionGate) Check(peerVersion string) error {
	v, err := semver.NewVersion(peerVersion)
	if err != nil {
		return fmt.Errorf("remote: unparseable protocol version %q: %w", peerVersion, err)
	}
	if !g.constraint.Check(v) {
		return fmt.Errorf("remote: incompatible protocol version %s (require %s)", peerVersion, g.constraint.String())
	}
	return nil
}
