// Package sandbox executes company-supplied fare scoring functions in an
// embedded Lua interpreter under strict resource bounds.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ThinkalVB/entebus-server/internal/config"
	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// LuaSandbox implements the ScriptSandbox port.
//
// Each evaluation runs in a fresh interpreter state: scripts cannot observe
// earlier runs, and identical (function, attributes, trip) inputs always
// produce identical results. Only the base, table, string and math
// libraries are opened, with loaders and randomness removed; there is no
// os, io, package or debug access.
type LuaSandbox struct {
	cfg config.Sandbox
}

func NewLuaSandbox(cfg config.Sandbox) *LuaSandbox {
	return &LuaSandbox{cfg: cfg}
}

// safeLibs are the libraries opened inside the sandbox. The package loader
// and the os/io/debug libraries are deliberately absent.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// removedGlobals are base functions that would let a script load code,
// reach the host, or behave non-deterministically.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "print", "collectgarbage"}

// memoryCeilingMsg is raised from guarded allocators; classifyFault maps
// it to ErrScriptMemoryExceeded.
const memoryCeilingMsg = "memory ceiling exceeded"

// Evaluate runs functionBody with `attributes` and `trip` bound as global
// tables. The script's return value is either a plain number (the total
// amount in minor currency units) or a table of the form
// { total = n, breakdown = { adult = n, ... } }.
func (s *LuaSandbox) Evaluate(ctx context.Context, functionBody string, attributes map[string]any, trip domain.TripContext) (result domain.Evaluation, err error) {
	// The registry ceiling is the interpreter's only allocation bound; it
	// is sized from the configured byte ceiling assuming ~64 bytes per
	// registry slot. Overflow surfaces as a Lua panic caught below.
	maxRegistry := s.cfg.MaxMemoryBytes / 64
	if maxRegistry < 1024 {
		maxRegistry = 1024
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     1024,
		RegistryMaxSize:  maxRegistry,
		RegistryGrowStep: 256,
		CallStackSize:    128,
	})
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = classifyFault(ctx, fmt.Errorf("%v", r))
		}
	}()

	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if mathTbl, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		mathTbl.RawSetString("random", lua.LNil)
		mathTbl.RawSetString("randomseed", lua.LNil)
	}
	s.guardStringAllocs(L)

	L.SetGlobal("attributes", attributesTable(L, attributes))
	L.SetGlobal("trip", tripTable(L, trip))

	if err := L.DoString(functionBody); err != nil {
		return domain.Evaluation{}, classifyFault(ctx, err)
	}

	if L.GetTop() < 1 {
		return domain.Evaluation{}, fmt.Errorf("%w: script returned nothing", domain.ErrScriptEvaluationFailed)
	}
	return decodeResult(L.Get(-1))
}

// guardStringAllocs rewraps the string functions that can mint a result
// far larger than their inputs. The registry bound counts values, not
// bytes, so without this a single string.rep call could allocate past the
// configured ceiling in one step.
func (s *LuaSandbox) guardStringAllocs(L *lua.LState) {
	strTbl, ok := L.GetGlobal(lua.StringLibName).(*lua.LTable)
	if !ok {
		return
	}
	strTbl.RawSetString("rep", L.NewFunction(func(L *lua.LState) int {
		str := L.CheckString(1)
		n := L.CheckInt(2)
		if n <= 0 {
			L.Push(lua.LString(""))
			return 1
		}
		if int64(len(str))*int64(n) > int64(s.cfg.MaxMemoryBytes) {
			L.RaiseError(memoryCeilingMsg)
			return 0
		}
		L.Push(lua.LString(strings.Repeat(str, n)))
		return 1
	}))
}

// classifyFault maps an interpreter failure to exactly one of the three
// typed sandbox errors, with a redacted diagnostic.
func classifyFault(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrScriptTimeout
	}
	msg := err.Error()
	if strings.Contains(msg, memoryCeilingMsg) ||
		strings.Contains(msg, "registry overflow") || strings.Contains(msg, "stack overflow") {
		return domain.ErrScriptMemoryExceeded
	}
	return fmt.Errorf("%w: %s", domain.ErrScriptEvaluationFailed, redact(msg))
}

// redact keeps only the first line of a Lua error so host paths and stack
// traces never leak to callers.
func redact(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	const max = 200
	if len(msg) > max {
		msg = msg[:max]
	}
	return msg
}

func decodeResult(v lua.LValue) (domain.Evaluation, error) {
	switch rv := v.(type) {
	case lua.LNumber:
		total, err := toAmount(float64(rv))
		if err != nil {
			return domain.Evaluation{}, err
		}
		return domain.Evaluation{Total: total}, nil

	case *lua.LTable:
		totalVal, ok := rv.RawGetString("total").(lua.LNumber)
		if !ok {
			return domain.Evaluation{}, fmt.Errorf("%w: result table missing numeric 'total'", domain.ErrScriptEvaluationFailed)
		}
		total, err := toAmount(float64(totalVal))
		if err != nil {
			return domain.Evaluation{}, err
		}

		eval := domain.Evaluation{Total: total}
		if bd, ok := rv.RawGetString("breakdown").(*lua.LTable); ok {
			eval.Breakdown = map[string]int64{}
			var convErr error
			bd.ForEach(func(k, v lua.LValue) {
				key, kok := k.(lua.LString)
				num, vok := v.(lua.LNumber)
				if !kok || !vok {
					convErr = fmt.Errorf("%w: breakdown entries must map strings to numbers", domain.ErrScriptEvaluationFailed)
					return
				}
				amount, err := toAmount(float64(num))
				if err != nil {
					convErr = err
					return
				}
				eval.Breakdown[string(key)] = amount
			})
			if convErr != nil {
				return domain.Evaluation{}, convErr
			}
		}
		return eval, nil
	}
	return domain.Evaluation{}, fmt.Errorf("%w: script must return a number or a table", domain.ErrScriptEvaluationFailed)
}

// toAmount converts a script number to minor currency units. Negative and
// non-finite amounts are faults, never silently clamped.
func toAmount(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: amount out of range", domain.ErrScriptEvaluationFailed)
	}
	return int64(math.Round(f)), nil
}

func attributesTable(L *lua.LState, attrs map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range attrs {
		t.RawSetString(k, toLuaValue(L, v))
	}
	return t
}

func tripTable(L *lua.LState, trip domain.TripContext) *lua.LTable {
	counts := L.NewTable()
	for name, n := range trip.TicketCounts {
		counts.RawSetString(name, lua.LNumber(n))
	}

	t := L.NewTable()
	t.RawSetString("distance_meters", lua.LNumber(trip.DistanceMeters))
	t.RawSetString("ticket_counts", counts)
	t.RawSetString("pickup_type", lua.LNumber(trip.PickupType))
	t.RawSetString("drop_type", lua.LNumber(trip.DropType))
	t.RawSetString("issued_at", lua.LNumber(trip.IssuedAt))
	return t
}

func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch tv := v.(type) {
	case float64:
		return lua.LNumber(tv)
	case float32:
		return lua.LNumber(tv)
	case int:
		return lua.LNumber(tv)
	case int32:
		return lua.LNumber(tv)
	case int64:
		return lua.LNumber(tv)
	case string:
		return lua.LString(tv)
	case bool:
		return lua.LBool(tv)
	case map[string]any:
		t := L.NewTable()
		for k, mv := range tv {
			t.RawSetString(k, toLuaValue(L, mv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, sv := range tv {
			t.RawSetInt(i+1, toLuaValue(L, sv))
		}
		return t
	}
	return lua.LNil
}
