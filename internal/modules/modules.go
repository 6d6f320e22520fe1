// Package modules defines the native-module registration contract (§4.11
// Module & plugin interface). A real jdBasic plugin is a dynamically loaded
// .so/.dll exporting a single C-linkage entry point,
// `jdBasic_register_module(vm *NeReLaBasic, services *ModuleServices)`
// (original_source/plugins/sqlitefunc/sqlitefunc.h), through which it hands
// the host a table of native functions. Dynamic-library loading itself is
// out of scope here (§1: treated as an external collaborator via its
// contract only), but the registration shape is preserved: each module is a
// plain Go value with a Register method that installs its natives through a
// callback, exactly as the original's entry point installs them through
// ModuleServices — just without the .so boundary in between.
package modules

import "github.com/jdbasic/jdbasic/internal/bytecode"

// RegisterFunc installs one native function into the host's function table.
type RegisterFunc func(name string, arity int, fn bytecode.NativeFunc)

// Module is one native module's registration contract.
type Module interface {
	Register(reg RegisterFunc)
}

// RegisterAll wires every given module into reg, in call order, so a
// module's own documentation order determines bytecode.Program.Functions
// population deterministically.
func RegisterAll(reg RegisterFunc, mods ...Module) {
	for _, m := range mods {
		m.Register(reg)
	}
}
