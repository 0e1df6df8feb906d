package simulation

import (
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sarchlab/netsim/addressing"
	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/monitoring"
	"github.com/sarchlab/netsim/network"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/tracing"
	"github.com/sarchlab/netsim/traffic"
)

// Builder can be used to build a simulation.
type Builder struct {
	logger       *zap.Logger
	writers      []tracing.Writer
	eventLogging bool

	recordToDB     bool
	outputFileName string

	monitorOn   bool
	monitorPort int
	openBrowser bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used by every part of the simulation.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithTraceWriter adds a writer that receives every trace record.
func (b Builder) WithTraceWriter(w tracing.Writer) Builder {
	b.writers = append(b.writers[:len(b.writers):len(b.writers)], w)
	return b
}

// WithEventLogging logs every dispatched event at debug level.
func (b Builder) WithEventLogging() Builder {
	b.eventLogging = true
	return b
}

// WithDataRecorder stores the trace in a SQLite file. An empty name picks a
// unique one.
func (b Builder) WithDataRecorder(filename string) Builder {
	b.recordToDB = true
	b.outputFileName = filename

	return b
}

// WithMonitor starts the monitoring server when the simulation is built.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitor page once the server is up.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:       xid.New().String(),
		logger:   b.logger,
		engine:   timing.NewSerialEngine(),
		topo:     topology.New(b.logger),
		registry: addressing.NewRegistry(),
		emitter:  tracing.NewEmitter(b.writers...),
	}

	s.network = network.NewHandler(s.engine, s.topo, s.registry, b.logger)
	s.apps = traffic.NewManager(s.engine, b.logger)
	s.network.Attach(s.apps, s.apps)
	s.apps.SetNetwork(s.network)

	tracing.CollectTrace(s.network, s.emitter)
	tracing.CollectTrace(s.apps, s.emitter)

	if b.eventLogging {
		s.engine.AcceptHook(timing.NewEventLogger(b.logger))
	}

	if b.recordToDB {
		s.recorder = datarecording.New(b.outputFileName)
		s.emitter.AddWriter(
			tracing.NewDBWriter(s.recorder, tracing.DefaultTraceTable))
	}

	if b.monitorOn {
		if err := b.startMonitor(s); err != nil {
			return nil, err
		}
	}

	b.logger.Info("simulation created", zap.String("id", s.id))

	return s, nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().WithLogger(b.logger)
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterTopology(s.topo)
	s.monitor.RegisterRoutes(s.Routes)
	s.monitor.RegisterApps(s.apps)
	s.monitor.RegisterTrace(s.emitter)

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	if b.openBrowser {
		if err := monitoring.OpenBrowser(url); err != nil {
			b.logger.Warn("browser not opened", zap.Error(err))
		}
	}

	return nil
}
