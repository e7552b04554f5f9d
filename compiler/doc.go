/*
Package compiler builds, checks and runs native code in process.

Pieces

	tp      native types and the host scalar table
	ir      context, modules, values, the instruction builder, verification, linking
	jit     execution engine and the compiler owning everything above
	native  the cgo side: diagnostics, one-time init, call trampolines
	set     dense integer sets, tracks modules present in an engine

Lifecycle

	NewContext ->
		NewModule / LoadBitcode ->
	Builder emits instructions ->
		Verify -> Optimize ->
	Engine (module forgotten into it) ->
		PointerToGlobal -> Call ->
	Close: engine, builders, modules, context

This package only adds file-level helpers on top.
*/
package compiler
