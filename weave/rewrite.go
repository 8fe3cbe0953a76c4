package weave

import (
	"fmt"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

// Mode is the bridging state of the rewrite fold.
type Mode int

const (
	// Normal: no synthesized call result is pending.
	Normal Mode = iota
	// AwaitingReturnBridge: a synthesized invoke left the raw target result
	// on the stack and the next advice instruction decides how to bridge it.
	AwaitingReturnBridge
)

func (m Mode) String() string {
	if m == AwaitingReturnBridge {
		return "AwaitingReturnBridge"
	}
	return "Normal"
}

// RewriteState is carried from one advice instruction to the next.
type RewriteState struct {
	Mode Mode
	// LastInt is the value of the previous instruction when it pushed an int
	// constant; HasLastInt is false otherwise. Debug entries and labels do
	// not reset it, except labels that a jump or handler enters.
	LastInt    int
	HasLastInt bool
}

// AspectContext is everything the rewriter needs to translate one advice
// body into the proxy at Position.
type AspectContext struct {
	Plan     *ChainPlan
	Aspect   *AspectDescriptor
	Position int
	// Host is the internal name of the class receiving generated methods.
	Host string
	// Super is the internal name the original implementation is reached
	// through.
	Super string
	Slots SlotMap
	// Scratch is the first local slot free for bridging code.
	Scratch int
	// JoinLabels are the labels control can reach other than by falling
	// through. RewriteAdvice fills it from the advice body.
	JoinLabels map[bc.Label]bool
}

// NewAspectContext prepares the context for proxy position i of plan.
func NewAspectContext(plan *ChainPlan, i int, host, super string) *AspectContext {
	aspect := plan.Aspect(i)
	slots := NewSlotMap(plan.Target().ArgumentSlotWidth())
	return &AspectContext{
		Plan:     plan,
		Aspect:   aspect,
		Position: i,
		Host:     host,
		Super:    super,
		Slots:    slots,
		Scratch:  slots.Map(aspect.MaxLocalSlot + 1),
	}
}

// metaCall describes one entry of the meta-call vocabulary.
type metaCall struct {
	desc    string
	indexed bool // takes a 1-based argument index as its last parameter
}

var metaCalls = map[string]metaCall{
	"invoke":           {desc: "()Ljava/lang/Object;"},
	"argumentsCount":   {desc: "()I"},
	"argumentType":     {desc: "(I)Ljava/lang/Class;", indexed: true},
	"argument":         {desc: "(I)Ljava/lang/Object;", indexed: true},
	"setArgument":      {desc: "(Ljava/lang/Object;I)V", indexed: true},
	"arguments":        {desc: "()[Ljava/lang/Object;"},
	"argumentsClass":   {desc: "()[Ljava/lang/Class;"},
	"target":           {desc: "()Ljava/lang/Object;"},
	"targetClass":      {desc: "()Ljava/lang/Class;"},
	"targetMethodName": {desc: "()Ljava/lang/String;"},
	"returnType":       {desc: "()Ljava/lang/Class;"},
}

// Rewrite is one step of the fold: it translates the advice instruction at
// offset given the state left by the previous instruction.
func (ctx *AspectContext) Rewrite(st RewriteState, offset int, in bc.Instruction) ([]bc.Instruction, RewriteState, error) {
	code := bc.NewCode()

	if st.Mode == AwaitingReturnBridge {
		st.Mode = Normal
		if in.Op == bc.OpPop {
			discardResult(code, ctx.Plan.Target().Return())
			st.HasLastInt = false
			return code.Instructions(), st, nil
		}
		materializeResult(code, ctx.Plan.Target().Return(), ctx.Scratch)
	}

	next, err := ctx.rewriteInsn(code, &st, offset, in)
	if err != nil {
		return nil, st, err
	}

	if v, ok := in.IntValue(); ok {
		st.LastInt, st.HasLastInt = v, true
	} else if !in.Op.IsPseudo() || (in.Op == bc.OpLabel && ctx.JoinLabels[in.Label]) {
		st.HasLastInt = false
	}
	st.Mode = next
	return code.Instructions(), st, nil
}

// Finish flushes a bridge still pending at the end of the advice stream.
func (ctx *AspectContext) Finish(st RewriteState) []bc.Instruction {
	if st.Mode != AwaitingReturnBridge {
		return nil
	}
	code := bc.NewCode()
	materializeResult(code, ctx.Plan.Target().Return(), ctx.Scratch)
	return code.Instructions()
}

// RewriteAdvice folds Rewrite over a whole advice body.
func (ctx *AspectContext) RewriteAdvice(advice []bc.Instruction) ([]bc.Instruction, error) {
	ctx.JoinLabels = joinLabels(advice)
	out := make([]bc.Instruction, 0, len(advice)+16)
	var st RewriteState
	for i, in := range advice {
		insns, next, err := ctx.Rewrite(st, i, in)
		if err != nil {
			return nil, err
		}
		out = append(out, insns...)
		st = next
	}
	return append(out, ctx.Finish(st)...), nil
}

// joinLabels collects jump targets and exception handlers of code.
func joinLabels(code []bc.Instruction) map[bc.Label]bool {
	labels := make(map[bc.Label]bool)
	for _, in := range code {
		switch in.Shape() {
		case bc.ShapeJump:
			labels[in.Label] = true
		case bc.ShapeTryCatch:
			labels[in.Handler] = true
		}
	}
	return labels
}

func (ctx *AspectContext) malformed(offset int, format string, args ...interface{}) error {
	return &MalformedAdviceError{Aspect: ctx.Aspect.String(), Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// rewriteInsn appends the translation of in and returns the mode for the
// next instruction.
func (ctx *AspectContext) rewriteInsn(code *bc.Code, st *RewriteState, offset int, in bc.Instruction) (Mode, error) {
	naming := ctx.Plan.Naming()

	switch in.Shape() {
	case bc.ShapeVar, bc.ShapeIinc:
		in.Operand = ctx.Slots.Map(in.Operand)

	case bc.ShapeLocalVar:
		in.Operand = ctx.Slots.Map(in.Operand)
		if in.Operand == 0 && in.Desc == string(bc.ReferenceType(ctx.Aspect.SelfReference)) {
			in.Desc = string(bc.ReferenceType(ctx.Host))
		}

	case bc.ShapeField:
		if naming.IsMarker(in.Owner) {
			return Normal, ctx.malformed(offset, "field access %s.%s on the marker type", in.Owner, in.Name)
		}
		if in.Owner == ctx.Aspect.SelfReference {
			in.Owner = ctx.Host
			in.Name = naming.MemberName(in.Name, ctx.Aspect.Index)
		}

	case bc.ShapeMethod:
		if naming.IsMarker(in.Owner) {
			if in.Op != bc.OpInvokestatic {
				return Normal, ctx.malformed(offset, "%s on the marker type, want invokestatic", in.Op)
			}
			return ctx.metaCall(code, st, offset, in)
		}
		if in.Owner == ctx.Aspect.SelfReference && in.Name != "<init>" {
			in.Owner = ctx.Host
			in.Name = naming.MemberName(in.Name, ctx.Aspect.Index)
		}

	case bc.ShapeInsn:
		switch {
		case in.Op == bc.OpAreturn:
			returnObjectAs(code, ctx.Plan.Target().Return())
			return Normal, nil
		case in.Op.IsReturn():
			return Normal, ctx.malformed(offset, "advice must return an object, found %s", in.Op)
		}
	}

	code.Emit(in)
	return Normal, nil
}

// metaCall substitutes one call of the marker vocabulary.
func (ctx *AspectContext) metaCall(code *bc.Code, st *RewriteState, offset int, in bc.Instruction) (Mode, error) {
	call, ok := metaCalls[in.Name]
	if !ok {
		return Normal, ctx.malformed(offset, "unknown meta call %s", in.Name)
	}
	if in.Desc != call.desc {
		return Normal, ctx.malformed(offset, "meta call %s%s, want %s%s", in.Name, in.Desc, in.Name, call.desc)
	}

	target := ctx.Plan.Target()
	index := 0
	if call.indexed {
		if !st.HasLastInt {
			return Normal, ctx.malformed(offset, "%s requires a constant argument index", in.Name)
		}
		index = st.LastInt
		if !target.InRange(index) {
			return Normal, &ArgumentIndexError{
				Aspect: ctx.Aspect.String(),
				Call:   in.Name,
				Index:  index,
				Count:  target.ArgumentsCount(),
			}
		}
		// The index constant was already copied; drop it.
		code.EmitOp(bc.OpPop)
	}

	log.Debugf("%s: %s -> %s", ctx.Aspect, in.Name, target)

	switch in.Name {
	case "invoke":
		loadSpecialArguments(code, target)
		if ctx.Plan.IsLast(ctx.Position) {
			code.EmitInvoke(bc.OpInvokespecial, ctx.Super, target.Name(), target.Desc())
		} else {
			code.EmitInvoke(bc.OpInvokespecial, ctx.Host, ctx.Plan.NextMethodName(ctx.Position), target.Desc())
		}
		return AwaitingReturnBridge, nil
	case "argumentsCount":
		code.EmitInt(target.ArgumentsCount())
	case "argumentType":
		loadTypeToken(code, target.ArgumentType(index))
	case "argument":
		loadArgumentBoxed(code, target, index)
	case "setArgument":
		storeArgument(code, target, index)
	case "arguments":
		loadArgumentsArray(code, target)
	case "argumentsClass":
		loadArgumentTypesArray(code, target)
	case "target":
		code.EmitLoad(bc.ObjectType, 0)
	case "targetClass":
		code.EmitLdc(bc.TypeConst(bc.ReferenceType(ctx.Super)))
	case "targetMethodName":
		code.EmitLdc(bc.StringConst(target.Name()))
	case "returnType":
		loadTypeToken(code, target.Return())
	}
	return Normal, nil
}
