package cmd

import (
	"bytes"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const echoScenario = "../../../scenario/testdata/task1-2.yaml"

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

var _ = Describe("netsim", func() {
	It("should print the version", func() {
		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("netsim dev"))
	})

	It("should print routing tables", func() {
		out, err := execute("routes", echoScenario)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("NEXT HOP"))
		Expect(out).To(ContainSubstring("192.138.1.3"))
	})

	It("should run a scenario and query its trace", func() {
		dir := GinkgoT().TempDir()
		db := filepath.Join(dir, "trace")

		out, err := execute("run", echoScenario,
			"--stop", "6s",
			"--db", db,
			"--pcap-dir", filepath.Join(dir, "captures"))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("task1-2 finished"))
		Expect(out).To(ContainSubstring("n8-echo-client"))
		Expect(filepath.Join(dir, "captures", "task1-2-n3.pcap")).To(BeAnExistingFile())

		out, err = execute("trace", db+".sqlite3",
			"--kind", "receive", "--node", "8", "--limit", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("192.138.1.3:63"))
		Expect(out).To(ContainSubstring("1 of 2 records"))
	})

	It("should fail on a missing scenario", func() {
		_, err := execute("run", "does-not-exist.yaml")
		Expect(err).To(HaveOccurred())
	})

	It("should reject a bad log level", func() {
		_, err := execute("version", "--log-level", "loud")
		Expect(err).To(HaveOccurred())
	})
})
