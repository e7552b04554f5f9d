package ir

import (
	"iter"

	"tinygo.org/x/go-llvm"
)

type (
	// Block is a basic block: entered at the top, left through its single terminator.
	Block struct {
		bb llvm.BasicBlock
	}
)

func (b Block) Native() llvm.BasicBlock { return b.bb }

func (b Block) IsNil() bool { return b.bb.C == nil }

func (b Block) Name() string { return b.bb.AsValue().Name() }

func (b Block) Parent() Function {
	return Function{GlobalValue: GlobalValue{Value: Value{v: b.bb.Parent()}}}
}

// Terminator returns the block terminator if the block is complete.
func (b Block) Terminator() (Instruction, bool) {
	last := b.bb.LastInstruction()
	if last.IsNil() {
		return Instruction{}, false
	}

	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Invoke, llvm.Unreachable:
		return Instruction{Value{v: last}}, true
	}

	return Instruction{}, false
}

func (b Block) Instructions() iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		for i := b.bb.FirstInstruction(); !i.IsNil(); i = llvm.NextInstruction(i) {
			if !yield(Instruction{Value{v: i}}) {
				return
			}
		}
	}
}
