package modules

import (
	"testing"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/value"
)

type fakeModule struct{ registered []string }

func (f *fakeModule) Register(reg RegisterFunc) {
	reg("FAKE.ONE", 0, func(interface{}, []value.Value) (value.Value, error) { return value.Nil(), nil })
	f.registered = append(f.registered, "FAKE.ONE")
}

func TestRegisterAllCallsEachModuleInOrder(t *testing.T) {
	var calls []string
	reg := func(name string, arity int, fn bytecode.NativeFunc) {
		calls = append(calls, name)
	}

	a, b := &fakeModule{}, &fakeModule{}
	RegisterAll(reg, a, b)

	if len(calls) != 2 || calls[0] != "FAKE.ONE" || calls[1] != "FAKE.ONE" {
		t.Fatalf("calls = %v, want two FAKE.ONE registrations", calls)
	}
	if len(a.registered) != 1 || len(b.registered) != 1 {
		t.Fatalf("expected each module registered once, got a=%v b=%v", a.registered, b.registered)
	}
}
