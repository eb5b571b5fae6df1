// Package vm implements the bytecode interpreter: a 32-bit three-register
// stack machine with tagged references into one of four memory domains
// (untagged, the call stack, the per-actor storage block, or VM memory),
// plus the pool-of-instances re-entrancy contract host callbacks rely on.
package vm

import (
	"log"
	"sync"

	"github.com/vsengine/vsengine/vmmem"
)

// Op is one bytecode opcode. The numbering is load-bearing: compiled
// scripts reference these values directly.
type Op byte

const (
	OpExit Op = iota
	OpCmpEq
	OpCmpNe
	OpCmpLe
	OpCmpLeq
	OpCmpGr
	OpCmpGreq
	OpCmpNae
	OpCmpNa
	OpCmpA
	OpCmpAe
	OpBranch
	OpJmp
	OpSPAdd
	OpMovEdiEcxAl
	OpMovEbxEcxAl
	OpMovEdiEcxEax
	OpMovEbxEcxEax
	OpRet
	OpRetx
	OpMovEdxEax
	OpAddEaxEdx
	OpMul
	OpOr
	OpXor
	OpAnd
	OpNeg
	OpSar
	OpShl
	OpLoad
	OpInc
	OpDec
	OpXchg
	OpPushEax
	OpPopEdx
	OpLoadOffsetEdi
	OpLoadOffsetEdi2
	OpLoadOffsetEbx
	OpLoadOffsetEsp
	OpMovPtrEdxAl
	OpMovPtrEdxEax
	OpShl2
	OpAdd4
	OpSub4
	OpXchgEsp
	OpNegAdd
	OpDiv
	OpMovEaxBptrEdi
	OpMovEaxBptrEbx
	OpMovEaxDptrEdi
	OpMovEaxDptrEbx
	OpMovEaxBptrEax
	OpMovEaxDptrEax
	OpPushEsiAddEdi
	OpCallFunc
	OpPushEsiSetEdxEdi

	opMax = iota
)

// Ref is the 2-bit memory-domain tag carried alongside every register and
// stack value.
type Ref byte

const (
	RefUnk Ref = iota
	RefStack
	RefEBX
	RefEDI
)

// Value is a tagged 32-bit register or stack slot.
type Value struct {
	Val uint32
	Ref Ref
}

const (
	stackSize     = 256
	stackPos      = 0x80
	instancePoolN = 2
)

// Instance is one VM register file plus its private call stack. Host
// callbacks invoked through CALL_FUNC receive the running Instance and may
// inspect or mutate its registers.
type Instance struct {
	ESI uint32
	EBX []byte // the current actor's storage block (REF_EBX target)
	EAX Value
	EDX Value
	ECX Value
	SP  uint32

	stack    [stackSize]byte
	stackTag [stackSize]Ref

	inUse bool
}

// CallFunc is a registered CALL_FUNC host callback.
type CallFunc func(m *Machine, inst *Instance, funcID uint32)

// Machine owns the shared VM memory, the interrupt flag, the instance
// pool, and the CALL_FUNC dispatch table. Memory and the interrupt flag
// are shared by every instance, matching the reference VM's static
// memory map: re-entrant calls operate on independent registers but the
// same underlying address space.
type Machine struct {
	Mem *vmmem.Memory

	mu        sync.Mutex
	pool      [instancePoolN]*Instance
	callbacks map[uint32]CallFunc
	warned    map[uint32]bool

	interruptMu sync.Mutex
	interrupt   bool
	needReload  bool
}

// New returns a Machine backed by a fresh, empty address space.
func New() *Machine {
	m := &Machine{
		Mem:       vmmem.New(),
		callbacks: make(map[uint32]CallFunc),
		warned:    make(map[uint32]bool),
	}
	for i := range m.pool {
		m.pool[i] = &Instance{}
	}
	return m
}

// RegisterCallback binds a host function to a CALL_FUNC id.
func (m *Machine) RegisterCallback(id uint32, fn CallFunc) {
	m.callbacks[id] = fn
}

// Interrupted reports whether a reload (or other abort) is in flight.
func (m *Machine) Interrupted() bool {
	m.interruptMu.Lock()
	defer m.interruptMu.Unlock()
	return m.interrupt
}

// PoolSnapshot reports whether each pooled instance is currently
// checked out by a running Execute call, for debug-console
// introspection.
func (m *Machine) PoolSnapshot() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(m.pool))
	for i, inst := range m.pool {
		out[i] = inst.inUse
	}
	return out
}

// SetInterrupt raises the cooperative-cancellation flag; every running
// and future execute() call returns 0 until ClearInterrupt is called.
func (m *Machine) SetInterrupt() {
	m.interruptMu.Lock()
	m.interrupt = true
	m.interruptMu.Unlock()
}

// ClearInterrupt lowers the flag, normally once the driver has finished
// re-entering with the newly loaded module.
func (m *Machine) ClearInterrupt() {
	m.interruptMu.Lock()
	m.interrupt = false
	m.interruptMu.Unlock()
}

// NeedReload reports whether a CALL_FUNC callback requested a module
// switch this tick.
func (m *Machine) NeedReload() bool {
	m.interruptMu.Lock()
	defer m.interruptMu.Unlock()
	return m.needReload
}

// RequestReload sets needReload and raises the interrupt flag in one
// step, the pattern the "switch module" callback uses.
func (m *Machine) RequestReload() {
	m.interruptMu.Lock()
	m.needReload = true
	m.interrupt = true
	m.interruptMu.Unlock()
}

// AckReload clears needReload once the driver has bound the new module.
func (m *Machine) AckReload() {
	m.interruptMu.Lock()
	m.needReload = false
	m.interruptMu.Unlock()
}

// acquire returns a free pooled instance, or a transient one (with a
// warning) when the pool of two is exhausted — the pool is sized for
// exactly one level of callback re-entrancy, per the concurrency
// contract; a third concurrent level of nesting is a content bug.
func (m *Machine) acquire() (inst *Instance, pooled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pool {
		if !p.inUse {
			p.inUse = true
			*p = Instance{inUse: true}
			return p, true
		}
	}
	log.Printf("vm: instance pool exhausted, allocating transient instance")
	return &Instance{}, false
}

func (m *Machine) release(inst *Instance, pooled bool) {
	if !pooled {
		return
	}
	m.mu.Lock()
	inst.inUse = false
	m.mu.Unlock()
}

// Execute runs the script at scriptAddress against storage (the current
// actor's EBX-relative block) until OP_EXIT, an opcode outside the
// table, or the machine is interrupted; RET and RETX continue the run.
// It returns EAX's final value.
func (m *Machine) Execute(scriptAddress uint32, storage []byte) uint32 {
	if m.Interrupted() {
		return 0
	}

	inst, pooled := m.acquire()
	defer m.release(inst, pooled)

	inst.ESI = scriptAddress
	inst.EBX = storage
	inst.SP = stackPos

	for {
		if m.Interrupted() {
			return 0
		}

		op := Op(m.Mem.ReadU8(inst.ESI))
		inst.ESI++

		if op >= opMax {
			op = OpExit
		}

		switch op {
		case OpExit:
			return inst.EAX.Val

		case OpCmpEq:
			inst.EAX = boolVal(inst.EDX.Val == inst.EAX.Val)
		case OpCmpNe:
			inst.EAX = boolVal(inst.EDX.Val != inst.EAX.Val)
		case OpCmpLe:
			inst.EAX = boolVal(int32(inst.EDX.Val) < int32(inst.EAX.Val))
		case OpCmpLeq:
			inst.EAX = boolVal(int32(inst.EDX.Val) <= int32(inst.EAX.Val))
		case OpCmpGr:
			inst.EAX = boolVal(int32(inst.EDX.Val) > int32(inst.EAX.Val))
		case OpCmpGreq:
			inst.EAX = boolVal(int32(inst.EDX.Val) >= int32(inst.EAX.Val))
		case OpCmpNae:
			inst.EAX = boolVal(inst.EDX.Val < inst.EAX.Val)
		case OpCmpNa:
			inst.EAX = boolVal(inst.EDX.Val <= inst.EAX.Val)
		case OpCmpA:
			inst.EAX = boolVal(inst.EDX.Val > inst.EAX.Val)
		case OpCmpAe:
			inst.EAX = boolVal(inst.EDX.Val >= inst.EAX.Val)

		case OpBranch:
			// EAX==0 takes the branch; the reference names this
			// backwards relative to the usual "non-zero taken" idiom.
			if inst.EAX.Val != 0 {
				inst.ESI += 4
			} else {
				inst.ESI += m.Mem.ReadU32(inst.ESI)
			}
		case OpJmp:
			inst.ESI += m.Mem.ReadU32(inst.ESI)

		case OpSPAdd:
			inst.SP += m.Mem.ReadU32(inst.ESI)
			inst.ESI += 4

		case OpMovEdiEcxAl:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			m.setMem8(inst, RefEDI, inst.ECX.Val, byte(inst.EAX.Val))
			inst.ESI += 4
		case OpMovEbxEcxAl:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			m.setMem8(inst, RefEBX, inst.ECX.Val, byte(inst.EAX.Val))
			inst.ESI += 4
		case OpMovEdiEcxEax:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			m.setMem32(inst, RefEDI, inst.ECX.Val, inst.EAX.Val)
			inst.ESI += 4
		case OpMovEbxEcxEax:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			m.setMem32(inst, RefEBX, inst.ECX.Val, inst.EAX.Val)
			inst.ESI += 4

		case OpRet:
			inst.ESI = inst.pop32()
			inst.ESI += 4
		case OpRetx:
			inst.ECX = inst.popReg()
			inst.SP += m.Mem.ReadU32(inst.ESI)
			inst.ESI = inst.ECX.Val
			inst.ESI += 4

		case OpMovEdxEax:
			inst.EDX = inst.EAX
		case OpAddEaxEdx:
			inst.EAX.Val += inst.EDX.Val
			if inst.EAX.Ref == RefUnk && inst.EDX.Ref != RefUnk {
				inst.EAX.Ref = inst.EDX.Ref
			}
		case OpMul:
			inst.EAX.Val *= inst.EDX.Val
		case OpOr:
			inst.EAX.Val |= inst.EDX.Val
		case OpXor:
			inst.EAX.Val ^= inst.EDX.Val
		case OpAnd:
			inst.EAX.Val &= inst.EDX.Val
		case OpNeg:
			inst.EAX.Val = uint32(-int32(inst.EAX.Val))
		case OpSar:
			inst.EAX.Val = uint32(int32(inst.EDX.Val) >> (inst.EAX.Val & 0xff))
		case OpShl:
			inst.EAX.Val = inst.EDX.Val << (inst.EAX.Val & 0xff)

		case OpLoad:
			inst.EAX = Value{Val: m.Mem.ReadU32(inst.ESI), Ref: RefUnk}
			inst.ESI += 4
		case OpInc:
			inst.EAX.Val++
		case OpDec:
			inst.EAX.Val--
		case OpXchg:
			inst.ECX = inst.EAX
			inst.EAX = inst.EDX
			inst.EDX = inst.ECX

		case OpPushEax:
			inst.pushReg(inst.EAX)
		case OpPopEdx:
			inst.EDX = inst.popReg()

		case OpLoadOffsetEdi, OpLoadOffsetEdi2:
			inst.EAX = Value{Val: m.Mem.ReadU32(inst.ESI), Ref: RefEDI}
			inst.ESI += 4
		case OpLoadOffsetEbx:
			inst.EAX = Value{Val: m.Mem.ReadU32(inst.ESI), Ref: RefEBX}
			inst.ESI += 4
		case OpLoadOffsetEsp:
			inst.EAX = Value{Val: m.Mem.ReadU32(inst.ESI) + inst.SP, Ref: RefStack}
			inst.ESI += 4

		case OpMovPtrEdxAl:
			m.setMem8(inst, inst.EDX.Ref, inst.EDX.Val, byte(inst.EAX.Val))
		case OpMovPtrEdxEax:
			m.setMem32(inst, inst.EDX.Ref, inst.EDX.Val, inst.EAX.Val)

		case OpShl2:
			inst.EAX.Val <<= 2
		case OpAdd4:
			inst.EAX.Val += 4
		case OpSub4:
			inst.EAX.Val -= 4

		case OpXchgEsp:
			inst.ECX = inst.popReg()
			inst.pushReg(inst.EAX)
			inst.EAX = inst.ECX

		case OpNegAdd:
			inst.EAX.Val = uint32(-int32(inst.EAX.Val)) + inst.EDX.Val

		case OpDiv:
			inst.ECX = inst.EAX
			inst.EAX.Val = uint32(int32(inst.EDX.Val) / int32(inst.ECX.Val))
			inst.EDX.Val = uint32(int32(inst.EDX.Val) % int32(inst.ECX.Val))

		case OpMovEaxBptrEdi:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			inst.EAX.Val = uint32(int32(int8(m.getMem8(inst, RefEDI, inst.ECX.Val))))
			inst.ESI += 4
		case OpMovEaxBptrEbx:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			inst.EAX.Val = uint32(int32(int8(m.getMem8(inst, RefEBX, inst.ECX.Val))))
			inst.ESI += 4
		case OpMovEaxDptrEdi:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			inst.EAX.Val = m.getMem32(inst, RefEDI, inst.ECX.Val)
			inst.ESI += 4
		case OpMovEaxDptrEbx:
			inst.ECX.Val = m.Mem.ReadU32(inst.ESI)
			inst.EAX.Val = m.getMem32(inst, RefEBX, inst.ECX.Val)
			inst.ESI += 4
		case OpMovEaxBptrEax:
			inst.EAX.Val = uint32(int32(int8(m.getMem8(inst, inst.EAX.Ref, inst.EAX.Val))))
			inst.EAX.Ref = RefUnk
		case OpMovEaxDptrEax:
			inst.EAX.Val = m.getMem32(inst, inst.EAX.Ref, inst.EAX.Val)
			inst.EAX.Ref = RefUnk

		case OpPushEsiAddEdi:
			inst.push32(inst.ESI)
			inst.ESI = m.Mem.ReadU32(inst.ESI)

		case OpCallFunc:
			funcID := m.Mem.ReadU32(inst.ESI)
			inst.ESI += 4
			m.dispatchCallFunc(inst, funcID)

		case OpPushEsiSetEdxEdi:
			inst.push32(inst.ESI)
			inst.ESI = inst.EDX.Val

		default:
			return inst.EAX.Val
		}
	}
}

func (m *Machine) dispatchCallFunc(inst *Instance, id uint32) {
	fn, ok := m.callbacks[id]
	if !ok {
		if !m.warned[id] {
			m.warned[id] = true
			log.Printf("vm: CALL_FUNC to unregistered id %d", id)
		}
		inst.EAX = Value{}
		return
	}
	fn(m, inst, id)
}

func boolVal(b bool) Value {
	if b {
		return Value{Val: 1}
	}
	return Value{Val: 0}
}

func (inst *Instance) push32(val uint32) {
	inst.SP -= 4
	putU32(inst.stack[inst.SP&(stackSize-1):], val)
}

func (inst *Instance) pop32() uint32 {
	val := getU32(inst.stack[inst.SP&(stackSize-1):])
	inst.SP += 4
	return val
}

func (inst *Instance) pushReg(v Value) {
	inst.SP -= 4
	idx := inst.SP & (stackSize - 1)
	putU32(inst.stack[idx:], v.Val)
	inst.stackTag[idx] = v.Ref
}

func (inst *Instance) popReg() Value {
	idx := inst.SP & (stackSize - 1)
	v := Value{Val: getU32(inst.stack[idx:]), Ref: inst.stackTag[idx]}
	inst.SP += 4
	return v
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (m *Machine) getMem8(inst *Instance, ref Ref, offset uint32) byte {
	switch ref {
	case RefStack:
		return inst.stack[offset&(stackSize-1)]
	case RefEBX:
		if int(offset) >= len(inst.EBX) {
			return 0
		}
		return inst.EBX[offset]
	case RefEDI:
		return m.Mem.ReadU8(offset)
	default:
		return 0
	}
}

func (m *Machine) getMem32(inst *Instance, ref Ref, offset uint32) uint32 {
	switch ref {
	case RefStack:
		return getU32(inst.stack[offset&(stackSize-1):])
	case RefEBX:
		if int(offset)+4 > len(inst.EBX) {
			return 0
		}
		return getU32(inst.EBX[offset:])
	case RefEDI:
		return m.Mem.ReadU32(offset)
	default:
		return 0
	}
}

func (m *Machine) setMem8(inst *Instance, ref Ref, offset uint32, val byte) {
	switch ref {
	case RefStack:
		inst.stack[offset&(stackSize-1)] = val
	case RefEBX:
		if int(offset) < len(inst.EBX) {
			inst.EBX[offset] = val
		}
	case RefEDI:
		m.Mem.WriteU8(offset, val)
	}
}

func (m *Machine) setMem32(inst *Instance, ref Ref, offset uint32, val uint32) {
	switch ref {
	case RefStack:
		putU32(inst.stack[offset&(stackSize-1):], val)
	case RefEBX:
		if int(offset)+4 <= len(inst.EBX) {
			putU32(inst.EBX[offset:], val)
		}
	case RefEDI:
		m.Mem.WriteU32(offset, val)
	}
}

// GetMem8/GetMem32/SetMem8/SetMem32 expose the tagged-reference accessors
// to host callbacks that need to read or write a script-visible pointer
// handed to them in a register, mirroring the reference VM's getMem/
// setMem helpers.
func (m *Machine) GetMem8(inst *Instance, v Value) byte      { return m.getMem8(inst, v.Ref, v.Val) }
func (m *Machine) GetMem32(inst *Instance, v Value) uint32   { return m.getMem32(inst, v.Ref, v.Val) }
func (m *Machine) SetMem8(inst *Instance, v Value, b byte)   { m.setMem8(inst, v.Ref, v.Val, b) }
func (m *Machine) SetMem32(inst *Instance, v Value, u uint32) {
	m.setMem32(inst, v.Ref, v.Val, u)
}

// Pop32 and PopReg expose the call stack's pop side to CALL_FUNC host
// callbacks, which read their arguments off the stack the same way the
// reference VM's vmCallDispatcher does via vm->pop32()/vm->popReg().
func (inst *Instance) Pop32() uint32    { return inst.pop32() }
func (inst *Instance) PopReg() Value    { return inst.popReg() }
func (inst *Instance) Push32(v uint32)  { inst.push32(v) }
func (inst *Instance) PushReg(v Value)  { inst.pushReg(v) }
