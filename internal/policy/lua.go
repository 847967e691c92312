package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/treesync/internal/transaction"
)

// DefaultScriptTimeout bounds a single adjust call.
const DefaultScriptTimeout = 50 * time.Millisecond

// adjustFunc is the global a policy script must define:
//
//	function adjust(before, old, new, after, start, finish)
//	  return left, right
//	end
const adjustFunc = "adjust"

// Lua is a boundary policy implemented by a Lua script.
//
// The script runs in a state with only the base, table, string and math
// libraries. Calls are serialized; a script error or timeout is logged and
// treated as "no widening".
type Lua struct {
	mu      sync.Mutex
	L       *lua.LState
	adjust  *lua.LFunction
	closed  bool
	timeout time.Duration
	logger  *slog.Logger
}

// LuaOption configures a Lua policy.
type LuaOption func(*Lua)

// WithTimeout bounds each adjust call.
func WithTimeout(d time.Duration) LuaOption {
	return func(p *Lua) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for script failures.
func WithLogger(l *slog.Logger) LuaOption {
	return func(p *Lua) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewLua compiles a policy from source.
func NewLua(source string, opts ...LuaOption) (*Lua, error) {
	return newLua(func(L *lua.LState) error { return L.DoString(source) }, opts)
}

// LoadLua compiles a policy from a script file.
func LoadLua(path string, opts ...LuaOption) (*Lua, error) {
	return newLua(func(L *lua.LState) error { return L.DoFile(path) }, opts)
}

func newLua(load func(*lua.LState) error, opts []LuaOption) (*Lua, error) {
	p := &Lua{
		timeout: DefaultScriptTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	if err := load(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading policy script: %w", err)
	}
	fn, ok := L.GetGlobal(adjustFunc).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoAdjustFunc
	}

	p.L = L
	p.adjust = fn
	return p, nil
}

// Adjust implements transaction.BoundaryPolicy.
func (p *Lua) Adjust(b transaction.Boundary) (left, right int) {
	left, right, err := p.call(b)
	if err != nil {
		p.logger.Warn("boundary policy script failed", "start", b.Start, "end", b.End, "error", err)
		return 0, 0
	}
	return left, right
}

func (p *Lua) call(b transaction.Boundary) (int, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, 0, ErrPolicyClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	top := p.L.GetTop()
	err := p.L.CallByParam(lua.P{Fn: p.adjust, NRet: 2, Protect: true},
		lua.LString(b.Before),
		lua.LString(b.Old),
		lua.LString(b.New),
		lua.LString(b.After),
		lua.LNumber(b.Start),
		lua.LNumber(b.End),
	)
	if err != nil {
		p.L.SetTop(top)
		return 0, 0, err
	}

	left := int(lua.LVAsNumber(p.L.Get(-2)))
	right := int(lua.LVAsNumber(p.L.Get(-1)))
	p.L.Pop(2)
	return max(0, left), max(0, right), nil
}

// Close releases the Lua state. Adjust on a closed policy never widens.
func (p *Lua) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.L.Close()
		p.closed = true
	}
	return nil
}
