package capability

import (
	"context"
	"os"
	"time"

	"github.com/docker/docker/client"
)

// kvmDevicePath is the device node KVM-capable kernels expose. Its presence
// is what CI providers advertise as "KVM-enabled" runners.
const kvmDevicePath = "/dev/kvm"

// HostProbe inspects the execution host once, at construction, and answers
// every query from the memoized results. This keeps Has deterministic for the
// whole pipeline run even if the environment changes underneath (e.g. the
// Docker daemon restarting mid-run).
type HostProbe struct {
	results map[Tag]bool
}

// NewHostProbe detects all known capabilities on the current host.
// Detection failures count as the capability being absent.
func NewHostProbe(ctx context.Context) *HostProbe {
	return &HostProbe{results: map[Tag]bool{
		TagHardwareVirtualization: detectKVM(),
		TagDocker:                 detectDocker(ctx),
		TagRoot:                   os.Geteuid() == 0,
	}}
}

// Has reports whether the host satisfied tag at probe time.
// Unknown tags are unsatisfied.
func (p *HostProbe) Has(tag Tag) bool {
	return p.results[tag]
}

func detectKVM() bool {
	info, err := os.Stat(kvmDevicePath)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeDevice != 0
}

func detectDocker(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err = cli.Ping(pingCtx)
	return err == nil
}

var _ Probe = (*HostProbe)(nil)
