// Package hooking lets observers attach to simulation domains without the
// domains knowing who is listening.
package hooking

// HookPos names a site inside a domain where hooks fire.
type HookPos struct {
	Name string
}

// HookCtx is everything a hook is told when it fires.
type HookCtx struct {
	// Domain is the hookable object raising the hook.
	Domain Hookable

	// Pos identifies the site the hook fires from.
	Pos *HookPos

	// Item is the primary subject, e.g. a dispatched event or a trace record.
	Item any

	// Detail holds optional auxiliary data.
	Detail any
}

// Hookable is a domain that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are registered during setup, before
	// the domain starts running, and are never removed.
	AcceptHook(hook Hook)

	// Hooks returns all the registered hooks.
	Hooks() []Hook

	// InvokeHook triggers the registered hooks.
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program invoked by a hookable domain.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable for embedding.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase with no hooks.
func NewHookableBase() *HookableBase {
	return &HookableBase{hookList: make([]Hook, 0)}
}

// Hooks returns the registered hooks.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if existing == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
