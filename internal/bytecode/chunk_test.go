package bytecode

import "testing"

func TestWriteOpAndReadByte(t *testing.T) {
	c := NewChunk()
	pos := c.WriteOp(OP_ADD, 1)
	if c.ReadByte(pos) != byte(OP_ADD) {
		t.Errorf("ReadByte(%d) = %d, want %d", pos, c.ReadByte(pos), byte(OP_ADD))
	}
}

func TestWriteUint16RoundTrip(t *testing.T) {
	c := NewChunk()
	pos := c.Len()
	c.WriteUint16(0xBEEF, 1)
	if got := c.ReadUint16(pos); got != 0xBEEF {
		t.Errorf("ReadUint16 = %#x, want %#x", got, 0xBEEF)
	}
}

func TestWriteInt64RoundTrip(t *testing.T) {
	c := NewChunk()
	pos := c.Len()
	c.WriteInt64(-123456789, 1)
	if got := c.ReadInt64(pos); got != -123456789 {
		t.Errorf("ReadInt64 = %d, want %d", got, -123456789)
	}
}

func TestWriteFloat64RoundTrip(t *testing.T) {
	c := NewChunk()
	pos := c.Len()
	c.WriteFloat64(3.14159, 1)
	if got := c.ReadFloat64(pos); got != 3.14159 {
		t.Errorf("ReadFloat64 = %v, want %v", got, 3.14159)
	}
}

func TestWriteCStringRoundTrip(t *testing.T) {
	c := NewChunk()
	pos := c.Len()
	c.WriteCString("hello", 1)
	s, next := c.ReadCString(pos)
	if s != "hello" {
		t.Errorf("ReadCString = %q, want %q", s, "hello")
	}
	if next != c.Len() {
		t.Errorf("next offset = %d, want %d", next, c.Len())
	}
}

func TestPatchUint16(t *testing.T) {
	c := NewChunk()
	placeholder := c.EmitPlaceholder(1)
	c.WriteOp(OP_RETURN, 1)
	target := c.Len()
	c.PatchUint16(placeholder, target)
	if got := c.ReadUint16(placeholder); int(got) != target {
		t.Errorf("patched value = %d, want %d", got, target)
	}
}

func TestWriteLinePrefixAndLineAt(t *testing.T) {
	c := NewChunk()
	c.WriteLinePrefix(300)
	pos := c.Len()
	c.WriteOp(OP_ADD, 300)
	if got := c.LineAt(pos); got != 300 {
		t.Errorf("LineAt(%d) = %d, want 300", pos, got)
	}
	if got := c.ReadUint16(0); got != 300 {
		t.Errorf("line prefix decodes to %d, want 300", got)
	}
}

func TestLineAtOutOfRangeFallsBackToLast(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OP_ADD, 5)
	if got := c.LineAt(999); got != 5 {
		t.Errorf("LineAt(out of range) = %d, want 5 (last line)", got)
	}
}

func TestLineAtEmptyChunk(t *testing.T) {
	c := NewChunk()
	if got := c.LineAt(0); got != 0 {
		t.Errorf("LineAt(0) on empty chunk = %d, want 0", got)
	}
}
