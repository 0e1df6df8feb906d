package traffic

import (
	"fmt"
	"net/netip"

	"github.com/iti/rngstream"
	"go.uber.org/zap"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/idgen"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/tracing"
)

// State is the lifecycle state of an application.
type State int

// Applications go from Inactive to Active to Stopped and never back.
const (
	Inactive State = iota
	Active
	Stopped
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts what an application did.
type Stats struct {
	SentPackets     uint64
	SentBytes       uint64
	ReceivedPackets uint64
	ReceivedBytes   uint64
	FirstReceive    timing.VTimeInSec
	LastReceive     timing.VTimeInSec
	Suppressed      uint64
}

// AppInfo is a snapshot of an application.
type AppInfo struct {
	ID        sim.AppID
	Name      string
	Node      sim.NodeID
	Role      Role
	Protocol  sim.Protocol
	Address   netip.AddrPort
	LocalPort uint16
	Window    Window
	State     State
	Stats     Stats
}

// FirstEphemeralPort is the first local port given to sources.
const FirstEphemeralPort = 49153

type binding struct {
	node     sim.NodeID
	protocol sim.Protocol
	port     uint16
}

type application struct {
	id     sim.AppID
	cfg    Config
	state  State
	port   uint16
	stats  Stats
	rng    *rngstream.RngStream
	seq    uint32
	onEnd  timing.VTimeInSec
	marker uint64
}

// Manager owns every application. It handles AppStartEvent and
// AppStopEvent, and sits on both ends of the network: it tells the network
// whether a packet may depart and takes the packets that arrive.
type Manager struct {
	*hooking.HookableBase

	engine  timing.EventScheduler
	network timing.Handler
	logger  *zap.Logger

	apps      []*application
	bindings  map[binding]sim.AppID
	nextPort  map[sim.NodeID]uint16
	packetIDs idgen.Generator[sim.PacketID]
}

// NewManager creates a manager with no applications.
func NewManager(engine timing.EventScheduler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		HookableBase: hooking.NewHookableBase(),
		engine:       engine,
		logger:       logger,
		bindings:     make(map[binding]sim.AppID),
		nextPort:     make(map[sim.NodeID]uint16),
		packetIDs:    idgen.New[sim.PacketID](),
	}
}

// SetNetwork sets the handler that carries the packets applications send.
func (m *Manager) SetNetwork(h timing.Handler) {
	m.network = h
}

// Add validates and installs an application, and schedules its start and
// stop. An empty window schedules nothing.
func (m *Manager) Add(cfg Config) (sim.AppID, error) {
	if err := cfg.Validate(); err != nil {
		return sim.NoApp, err
	}

	id := sim.AppID(len(m.apps))
	if cfg.Name == "" {
		cfg.Name = id.String()
	}

	app := &application{id: id, cfg: cfg}

	switch p := cfg.Policy.(type) {
	case ConstantRate:
		app.marker = p.Marker
	case OnOff:
		app.marker = p.Marker
	}

	if err := m.bind(app); err != nil {
		return sim.NoApp, err
	}

	if _, ok := cfg.Policy.(OnOff); ok {
		app.rng = rngstream.New(cfg.Name)
	}

	m.apps = append(m.apps, app)

	m.logger.Info("application created",
		zap.Stringer("app", id),
		zap.String("name", cfg.Name),
		zap.Stringer("node", cfg.Node),
		zap.Stringer("role", cfg.Role),
		zap.Stringer("address", cfg.Address),
		zap.Uint16("port", app.port))

	if cfg.Window.Empty() {
		return id, nil
	}

	m.engine.Schedule(timing.ScheduledEvent{
		Event:   &sim.AppStartEvent{App: id},
		Time:    cfg.Window.Start,
		Handler: m,
	})
	m.engine.Schedule(timing.ScheduledEvent{
		Event:   &sim.AppStopEvent{App: id},
		Time:    cfg.Window.Stop,
		Handler: m,
	})

	return id, nil
}

func (m *Manager) bind(app *application) error {
	b := binding{node: app.cfg.Node, protocol: app.cfg.Protocol}

	if app.cfg.Role == RoleSink {
		b.port = app.cfg.Address.Port()
		if owner, taken := m.bindings[b]; taken {
			return fmt.Errorf("%w: %s %s/%d is held by %s",
				sim.ErrPortInUse, b.node, b.protocol, b.port, owner)
		}
	} else {
		b.port = m.ephemeralPort(b)
	}

	app.port = b.port
	m.bindings[b] = app.id

	return nil
}

func (m *Manager) ephemeralPort(b binding) uint16 {
	port, ok := m.nextPort[b.node]
	if !ok {
		port = FirstEphemeralPort
	}

	for {
		b.port = port
		if _, taken := m.bindings[b]; !taken {
			break
		}

		port++
	}

	m.nextPort[b.node] = port + 1

	return port
}

// Handle handles the lifecycle events of applications.
func (m *Manager) Handle(event any) error {
	switch e := event.(type) {
	case *sim.AppStartEvent:
		return m.start(e.App)
	case *sim.AppStopEvent:
		return m.stop(e.App)
	default:
		return fmt.Errorf("traffic: unknown event type %T", event)
	}
}

func (m *Manager) app(id sim.AppID) (*application, error) {
	if id < 0 || int(id) >= len(m.apps) {
		return nil, fmt.Errorf("traffic: unknown application %d", int(id))
	}

	return m.apps[id], nil
}

func (m *Manager) start(id sim.AppID) error {
	app, err := m.app(id)
	if err != nil {
		return err
	}

	if app.state != Inactive {
		return nil
	}

	now := m.engine.CurrentTime()
	app.state = Active

	tracing.Emit(m, tracing.AppRecord(now, tracing.KindAppStart, app.cfg.Node, id))

	if app.cfg.Role != RoleSource {
		return nil
	}

	if p, ok := app.cfg.Policy.(OnOff); ok {
		app.onEnd = now + p.OnTime.Draw(app.rng)
		now = app.skipOffPeriods(now, p)
	}

	m.scheduleSend(app, now)

	return nil
}

func (m *Manager) stop(id sim.AppID) error {
	app, err := m.app(id)
	if err != nil {
		return err
	}

	if app.state == Stopped {
		return nil
	}

	app.state = Stopped

	tracing.Emit(m, tracing.AppRecord(m.engine.CurrentTime(),
		tracing.KindAppStop, app.cfg.Node, id))

	return nil
}

// Teardown stops every active application without emitting records.
// Applications that never started stay Inactive.
func (m *Manager) Teardown() {
	for _, app := range m.apps {
		if app.state == Active {
			app.state = Stopped
		}
	}
}

func (m *Manager) scheduleSend(app *application, at timing.VTimeInSec) {
	pkt := sim.Packet{
		ID:       m.packetIDs.Generate(),
		Size:     app.packetSize(),
		Protocol: app.cfg.Protocol,
		Marker:   app.marker,
		Src:      netip.AddrPortFrom(unspecifiedLike(app.cfg.Address.Addr()), app.port),
		Dst:      app.cfg.Address,
		Seq:      app.seq,
		TTL:      sim.DefaultTTL,
	}
	app.seq++

	m.engine.Schedule(timing.ScheduledEvent{
		Event:   &sim.SendEvent{Packet: pkt, Node: app.cfg.Node, Origin: app.id},
		Time:    at,
		Handler: m.network,
	})
}

// Departing admits packets of active applications and keeps sources going.
func (m *Manager) Departing(
	id sim.AppID,
	pkt sim.Packet,
	now timing.VTimeInSec,
) bool {
	app, err := m.app(id)
	if err != nil {
		return false
	}

	if app.state != Active {
		app.stats.Suppressed++
		return false
	}

	app.stats.SentPackets++
	app.stats.SentBytes += uint64(pkt.Size)

	if app.cfg.Role != RoleSource {
		return true
	}

	limit := app.maxPackets()
	if limit > 0 && app.stats.SentPackets >= uint64(limit) {
		return true
	}

	m.scheduleSend(app, app.nextSendTime(now))

	return true
}

// Receive hands an arriving packet to the application bound to its
// destination port.
func (m *Manager) Receive(
	node sim.NodeID,
	_ sim.InterfaceID,
	pkt sim.Packet,
	now timing.VTimeInSec,
) (sim.AppID, sim.Outcome) {
	id, bound := m.bindings[binding{
		node:     node,
		protocol: pkt.Protocol,
		port:     pkt.Dst.Port(),
	}]
	if !bound {
		return sim.NoApp, sim.OutcomeDropped
	}

	app := m.apps[id]
	if app.state != Active {
		app.stats.Suppressed++
		return id, sim.OutcomeSuppressed
	}

	if app.stats.ReceivedPackets == 0 {
		app.stats.FirstReceive = now
	}

	app.stats.ReceivedPackets++
	app.stats.ReceivedBytes += uint64(pkt.Size)
	app.stats.LastReceive = now

	if _, echo := app.cfg.Policy.(Echo); echo && pkt.Protocol == sim.Datagram {
		m.engine.Schedule(timing.ScheduledEvent{
			Event: &sim.SendEvent{
				Packet: pkt.Reply(m.packetIDs.Generate()),
				Node:   node,
				Origin: id,
			},
			Time:    now,
			Handler: m.network,
		})
	}

	return id, sim.OutcomeDelivered
}

// State returns the lifecycle state of an application.
func (m *Manager) State(id sim.AppID) (State, error) {
	app, err := m.app(id)
	if err != nil {
		return Inactive, err
	}

	return app.state, nil
}

// Stats returns the counters of an application.
func (m *Manager) Stats(id sim.AppID) (Stats, error) {
	app, err := m.app(id)
	if err != nil {
		return Stats{}, err
	}

	return app.stats, nil
}

// Apps returns a snapshot of every application.
func (m *Manager) Apps() []AppInfo {
	infos := make([]AppInfo, 0, len(m.apps))
	for _, app := range m.apps {
		infos = append(infos, AppInfo{
			ID:        app.id,
			Name:      app.cfg.Name,
			Node:      app.cfg.Node,
			Role:      app.cfg.Role,
			Protocol:  app.cfg.Protocol,
			Address:   app.cfg.Address,
			LocalPort: app.port,
			Window:    app.cfg.Window,
			State:     app.state,
			Stats:     app.stats,
		})
	}

	return infos
}

func (a *application) packetSize() int {
	switch p := a.cfg.Policy.(type) {
	case ConstantRate:
		return p.PacketSize
	case OnOff:
		return p.PacketSize
	default:
		return 0
	}
}

func (a *application) maxPackets() int {
	switch p := a.cfg.Policy.(type) {
	case ConstantRate:
		return p.MaxPackets
	case OnOff:
		return p.MaxPackets
	default:
		return 0
	}
}

// nextSendTime is one interval after now, counting only time spent in
// on-periods.
func (a *application) nextSendTime(now timing.VTimeInSec) timing.VTimeInSec {
	switch p := a.cfg.Policy.(type) {
	case ConstantRate:
		return now + sendInterval(p.PacketSize, p.Interval, p.DataRate)
	case OnOff:
		next := now + sendInterval(p.PacketSize, p.Interval, p.DataRate)
		return a.skipOffPeriods(next, p)
	default:
		panic(fmt.Sprintf("%s does not send", a.id))
	}
}

// skipOffPeriods moves t past the off-periods that follow the current
// on-period until it falls inside an on-period. Time beyond the end of an
// on-period carries over into the next one.
func (a *application) skipOffPeriods(
	t timing.VTimeInSec,
	p OnOff,
) timing.VTimeInSec {
	for t >= a.onEnd {
		off := p.OffTime.Draw(a.rng)
		a.onEnd += off + p.OnTime.Draw(a.rng)
		t += off
	}

	return t
}

func unspecifiedLike(addr netip.Addr) netip.Addr {
	if addr.Is6() && !addr.Is4In6() {
		return netip.IPv6Unspecified()
	}

	return netip.IPv4Unspecified()
}
