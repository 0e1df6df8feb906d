package scenario

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/traffic"
)

func newSimulation() *simulation.Simulation {
	s, err := simulation.MakeBuilder().Build()
	Expect(err).NotTo(HaveOccurred())

	return s
}

func statsByName(s *simulation.Simulation) map[string]traffic.Stats {
	out := make(map[string]traffic.Stats)
	for _, a := range s.Apps() {
		out[a.Name] = a.Stats
	}

	return out
}

var _ = DescribeTable("ParseDuration",
	func(in string, want float64) {
		d, err := ParseDuration(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Seconds()).To(Equal(want))
	},
	Entry("bare seconds", "1.5", 1.5),
	Entry("seconds", "20s", 20.0),
	Entry("milliseconds", "10ms", 10e-3),
	Entry("microseconds", "5us", 5e-6),
	Entry("nanoseconds", "6560ns", 6560e-9),
)

var _ = Describe("Scenario", func() {
	It("should reject negative and malformed durations", func() {
		_, err := ParseDuration("-1")
		Expect(err).To(MatchError(sim.ErrConfiguration))

		_, err = ParseDuration("soon")
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})

	It("should reject durations that are not finite", func() {
		for _, in := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf"} {
			_, err := ParseDuration(in)
			Expect(err).To(MatchError(sim.ErrConfiguration), in)
		}
	})

	It("should reject a link delay that is not a number", func() {
		_, err := Parse([]byte(`
nodes: 2
links:
  - {kind: p2p, bandwidth: 5Mbps, delay: NaN, nodes: [0, 1]}
`))
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})

	It("should reject unknown fields", func() {
		_, err := Parse([]byte("nodes: 2\ncolour: blue\n"))
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})

	It("should reject a scenario without nodes", func() {
		_, err := Parse([]byte("name: empty\n"))
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})

	It("should reject a bad bandwidth", func() {
		_, err := Parse([]byte(`
nodes: 2
links:
  - {kind: p2p, bandwidth: fast, delay: 1ms, nodes: [0, 1]}
`))
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})

	It("should default the stop time", func() {
		sc, err := Parse([]byte("nodes: 1\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Stop).To(Equal(DefaultStop))
	})

	It("should reject an unknown policy", func() {
		sc, err := Parse([]byte(`
nodes: 2
links:
  - {kind: p2p, bandwidth: 1Mbps, delay: 1ms, nodes: [0, 1], subnet: 10.0.0.0/30}
applications:
  - {policy: bulk, node: 0, address: "10.0.0.2:9"}
`))
		Expect(err).NotTo(HaveOccurred())

		s := newSimulation()
		defer s.Terminate()

		Expect(sc.Apply(s)).To(MatchError(sim.ErrInvalidApplication))
	})

	It("should reject a link to an unknown node", func() {
		sc, err := Parse([]byte(`
nodes: 2
links:
  - {kind: p2p, bandwidth: 1Mbps, delay: 1ms, nodes: [0, 2]}
`))
		Expect(err).NotTo(HaveOccurred())

		s := newSimulation()
		defer s.Terminate()

		Expect(sc.Apply(s)).To(MatchError(sim.ErrUnknownNode))
	})

	It("should reject a capture on a link the node is not attached to", func() {
		sc, err := Parse([]byte(`
nodes: 3
links:
  - {name: a, kind: p2p, bandwidth: 1Mbps, delay: 1ms, nodes: [0, 1], subnet: 10.0.0.0/30}
  - {name: b, kind: p2p, bandwidth: 1Mbps, delay: 1ms, nodes: [1, 2], subnet: 10.0.0.4/30}
captures:
  - {format: pcap, node: 0, link: b}
`))
		Expect(err).NotTo(HaveOccurred())

		s := newSimulation()
		defer s.Terminate()

		Expect(sc.Apply(s)).To(Succeed())
		Expect(sc.OpenCaptures(s, GinkgoT().TempDir())).
			To(MatchError(sim.ErrConfiguration))
	})

	Context("with the original configurations", func() {
		run := func(file string) (*simulation.Simulation, string) {
			sc, err := Load(filepath.Join("testdata", file))
			Expect(err).NotTo(HaveOccurred())

			s := newSimulation()
			dir := GinkgoT().TempDir()

			Expect(sc.Apply(s)).To(Succeed())
			Expect(sc.OpenCaptures(s, dir)).To(Succeed())

			_, err = s.Run(sc.Stop.Seconds())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Terminate()).To(Succeed())

			return s, dir
		}

		It("should run configuration 0", func() {
			s, dir := run("task1-0.yaml")

			stats := statsByName(s)
			sent := stats["n4-onoff"].SentPackets
			Expect(sent).To(BeNumerically("~", 500, 1))
			Expect(stats["n2-sink"].ReceivedPackets).To(Equal(sent))

			info, err := os.Stat(filepath.Join(dir, "task1-0-n3.pcap"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).To(BeNumerically(">", 24))

			text, err := os.ReadFile(filepath.Join(dir, "task1-0-n4.tr"))
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(text)), "\n")
			Expect(lines).To(HaveLen(int(sent)))
			Expect(lines[0]).To(HavePrefix("+ 3.000000000 /NodeList/4/"))
		})

		It("should run configuration 1", func() {
			s, _ := run("task1-1.yaml")

			stats := statsByName(s)
			Expect(stats["n0-sink"].ReceivedPackets).To(BeNumerically(">", 0))
			Expect(stats["n2-sink"].ReceivedPackets).To(BeNumerically(">", 0))
			Expect(stats["n4-onoff"].SentPackets).To(BeNumerically(">", 0))
			Expect(stats["n8-onoff"].SentPackets).To(BeNumerically(">", 0))
		})

		It("should run configuration 2", func() {
			s, _ := run("task1-2.yaml")

			stats := statsByName(s)
			Expect(stats["n8-echo-client"].SentPackets).To(Equal(uint64(5)))
			Expect(stats["n8-echo-client"].ReceivedPackets).To(Equal(uint64(5)))
			Expect(stats["n2-echo"].ReceivedPackets).To(Equal(uint64(5)))
			Expect(stats["n0-sink"].ReceivedPackets).To(BeNumerically(">", 0))
		})
	})
})
