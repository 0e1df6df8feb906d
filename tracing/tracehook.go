package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/netsim/hooking"
)

// CollectTrace makes w receive every record the domain emits.
func CollectTrace(domain hooking.Hookable, w Writer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.w == w {
			panic(fmt.Sprintf("domain %T already has writer %s",
				domain, reflect.TypeOf(w)))
		}
	}

	domain.AcceptHook(&traceHook{w: w})
}

type traceHook struct {
	w Writer
}

// Func forwards records to the writer. Writers report their failures through
// Flush, so write errors are not lost.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosRecord {
		return
	}

	_ = h.w.Write(ctx.Item.(Record))
}
