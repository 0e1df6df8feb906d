package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DataRate", func() {
	DescribeTable("parsing",
		func(in string, want DataRate) {
			got, err := ParseDataRate(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("bps", "9600bps", 9600*Bps),
		Entry("kbps", "500kbps", 500*Kbps),
		Entry("Mbps", "80Mbps", 80*Mbps),
		Entry("Gbps", "1Gbps", Gbps),
		Entry("fractional", "2.5Mbps", 2500*Kbps),
		Entry("bytes", "1KB/s", 8*Kbps),
		Entry("megabytes", "2MB/s", 16*Mbps),
	)

	It("should reject missing units", func() {
		_, err := ParseDataRate("100")
		Expect(err).To(MatchError(ErrConfiguration))
	})

	It("should reject garbage", func() {
		_, err := ParseDataRate("fastMbps")
		Expect(err).To(MatchError(ErrConfiguration))
	})

	DescribeTable("rejecting rates that do not fit",
		func(in string) {
			_, err := ParseDataRate(in)
			Expect(err).To(MatchError(ErrConfiguration))
		},
		Entry("not a number", "NaNMbps"),
		Entry("infinite", "InfGbps"),
		Entry("too large", "1e30Gbps"),
	)

	It("should compute transfer time", func() {
		Expect((80 * Mbps).TransferTime(1500)).To(BeNumerically("~", 150e-6, 1e-12))
	})

	It("should print the largest whole unit", func() {
		Expect((25 * Mbps).String()).To(Equal("25Mbps"))
		Expect((1500 * Kbps).String()).To(Equal("1500kbps"))
		Expect(DataRate(7).String()).To(Equal("7bps"))
	})
})
