package tracing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/netsim/sim"
)

// TextWriter writes one line per record, in the spirit of ns-3 ASCII traces:
//
//	+ 3.000000000 /NodeList/4/DeviceList/6 app3 pkt0 tcp 1500 10.0.3.1:49153 > 192.138.1.3:2400 delivered
//
// The leading symbol is + for a transmission, r for an arrival, f for a
// forward, d for a drop, s for a suppression, and a/z for an application
// starting/stopping.
type TextWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewTextWriter writes to w. If w is an io.Closer, Close closes it.
func NewTextWriter(w io.Writer) *TextWriter {
	t := &TextWriter{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}

	return t
}

func symbolOf(rec Record) string {
	switch rec.Kind {
	case KindAppStart:
		return "a"
	case KindAppStop:
		return "z"
	}

	switch rec.Outcome {
	case sim.OutcomeDropped:
		return "d"
	case sim.OutcomeSuppressed:
		return "s"
	case sim.OutcomeForwarded:
		return "f"
	}

	if rec.Kind == KindSend {
		return "+"
	}

	return "r"
}

func (t *TextWriter) Write(rec Record) error {
	if !rec.IsPacket() {
		_, err := fmt.Fprintf(t.w, "%s %.9f /NodeList/%d %s\n",
			symbolOf(rec), rec.Time, rec.Node, rec.App)
		return err
	}

	_, err := fmt.Fprintf(t.w,
		"%s %.9f /NodeList/%d/DeviceList/%d %s pkt%d %s %d %s > %s %s\n",
		symbolOf(rec), rec.Time, rec.Node, rec.Interface, rec.App,
		rec.PacketID, rec.Protocol, rec.PacketSize, rec.Src, rec.Dst,
		rec.Outcome)

	return err
}

func (t *TextWriter) Flush() error {
	return t.w.Flush()
}

// Close flushes and closes the underlying writer.
func (t *TextWriter) Close() error {
	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
