// Package addressing assigns subnets to links and resolves addresses back to
// interfaces.
package addressing

import (
	"fmt"
	"math"
	"net/netip"

	"go4.org/netipx"

	"github.com/sarchlab/netsim/sim"
)

// Target is what an address resolves to.
type Target struct {
	Link      sim.LinkID
	Interface sim.InterfaceID

	// Broadcast is set for the subnet broadcast address of Link. Interface
	// is sim.NoInterface then.
	Broadcast bool
}

type subnet struct {
	link   sim.LinkID
	prefix netip.Prefix
}

// Registry owns every assigned subnet. Subnets never overlap.
type Registry struct {
	subnets []subnet
	byLink  map[sim.LinkID]netip.Prefix
	targets map[netip.Addr]Target
	used    *netipx.IPSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLink:  make(map[sim.LinkID]netip.Prefix),
		targets: make(map[netip.Addr]Target),
		used:    &netipx.IPSet{},
	}
}

// Assign gives the link the subnet base/prefixLen and hands out host
// addresses to the interfaces in order, starting at the first host address.
func (r *Registry) Assign(
	linkID sim.LinkID,
	interfaces []sim.InterfaceID,
	base netip.Addr,
	prefixLen int,
) ([]netip.Addr, error) {
	prefix, err := subnetOf(base, prefixLen)
	if err != nil {
		return nil, err
	}

	if existing, ok := r.byLink[linkID]; ok {
		return nil, fmt.Errorf("%w: %s already has %s",
			sim.ErrLinkAlreadyAddressed, linkID, existing)
	}

	if r.used.OverlapsPrefix(prefix) {
		return nil, fmt.Errorf("%w: %s", sim.ErrOverlappingSubnet, prefix)
	}

	if capacity := hostCapacity(prefix); uint64(len(interfaces)) > capacity {
		return nil, fmt.Errorf("%w: %s holds %d hosts, %d interfaces",
			sim.ErrAddressSpaceExhausted, prefix, capacity, len(interfaces))
	}

	var b netipx.IPSetBuilder
	b.AddSet(r.used)
	b.AddPrefix(prefix)

	used, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sim.ErrInvalidSubnet, prefix, err)
	}

	r.used = used
	r.byLink[linkID] = prefix
	r.subnets = append(r.subnets, subnet{link: linkID, prefix: prefix})

	addrs := make([]netip.Addr, 0, len(interfaces))
	addr := prefix.Addr()

	for _, iface := range interfaces {
		addr = addr.Next()
		addrs = append(addrs, addr)
		r.targets[addr] = Target{Link: linkID, Interface: iface}
	}

	if prefix.Addr().Is4() {
		r.targets[netipx.PrefixLastIP(prefix)] = Target{
			Link:      linkID,
			Interface: sim.NoInterface,
			Broadcast: true,
		}
	}

	return addrs, nil
}

// Resolve finds the interface holding addr, or the link whose broadcast
// address it is.
func (r *Registry) Resolve(addr netip.Addr) (Target, bool) {
	t, ok := r.targets[addr.Unmap()]
	return t, ok
}

// Subnet returns the prefix assigned to the link.
func (r *Registry) Subnet(linkID sim.LinkID) (netip.Prefix, bool) {
	p, ok := r.byLink[linkID]
	return p, ok
}

// Broadcast returns the subnet broadcast address of an IPv4 link.
func (r *Registry) Broadcast(linkID sim.LinkID) (netip.Addr, bool) {
	p, ok := r.byLink[linkID]
	if !ok || !p.Addr().Is4() {
		return netip.Addr{}, false
	}

	return netipx.PrefixLastIP(p), true
}

// Subnets returns every prefix in assignment order.
func (r *Registry) Subnets() []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(r.subnets))
	for _, s := range r.subnets {
		prefixes = append(prefixes, s.prefix)
	}

	return prefixes
}

func subnetOf(base netip.Addr, prefixLen int) (netip.Prefix, error) {
	if !base.IsValid() {
		return netip.Prefix{}, fmt.Errorf("%w: invalid base address",
			sim.ErrInvalidSubnet)
	}

	base = base.Unmap()

	prefix, err := base.Prefix(prefixLen)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %s/%d: %v",
			sim.ErrInvalidSubnet, base, prefixLen, err)
	}

	if prefix.Addr() != base {
		return netip.Prefix{}, fmt.Errorf(
			"%w: %s/%d has host bits set, want %s",
			sim.ErrInvalidSubnet, base, prefixLen, prefix)
	}

	return prefix, nil
}

// hostCapacity counts the assignable host addresses. IPv4 reserves the
// network and broadcast addresses; IPv6 reserves only the subnet-router
// anycast address.
func hostCapacity(p netip.Prefix) uint64 {
	hostBits := p.Addr().BitLen() - p.Bits()
	if hostBits >= 63 {
		return math.MaxUint64
	}

	total := uint64(1) << hostBits

	reserved := uint64(1)
	if p.Addr().Is4() {
		reserved = 2
	}

	if total <= reserved {
		return 0
	}

	return total - reserved
}
