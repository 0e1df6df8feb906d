package tracing

// A Writer consumes trace records in time order.
type Writer interface {
	Write(rec Record) error
	Flush() error
}

type filter struct {
	Writer
	keep func(Record) bool
}

// Filter passes to w only the records keep accepts.
func Filter(w Writer, keep func(Record) bool) Writer {
	return &filter{Writer: w, keep: keep}
}

func (f *filter) Write(rec Record) error {
	if !f.keep(rec) {
		return nil
	}

	return f.Writer.Write(rec)
}

// Close closes the wrapped writer if it can be closed.
func (f *filter) Close() error {
	if c, ok := f.Writer.(interface{ Close() error }); ok {
		return c.Close()
	}

	return nil
}
