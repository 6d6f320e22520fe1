package nativedb

import (
	"encoding/json"
	"testing"

	"github.com/jdbasic/jdbasic/internal/value"
)

func TestDBOpenQueryClose(t *testing.T) {
	handleVal, err := dbOpen(nil, []value.Value{value.String(":memory:")})
	if err != nil {
		t.Fatalf("DBOPEN$: %v", err)
	}
	handle := value.ToString(handleVal)
	defer dbClose(nil, []value.Value{value.String(handle)})

	ddl := "CREATE TABLE t (id INTEGER, name TEXT)"
	if _, err := dbQuery(nil, []value.Value{value.String(handle), value.String(ddl)}); err != nil {
		t.Fatalf("DBQUERY$ (create): %v", err)
	}
	insert := "INSERT INTO t (id, name) VALUES (1, 'ada')"
	if _, err := dbQuery(nil, []value.Value{value.String(handle), value.String(insert)}); err != nil {
		t.Fatalf("DBQUERY$ (insert): %v", err)
	}

	resultVal, err := dbQuery(nil, []value.Value{value.String(handle), value.String("SELECT id, name FROM t")})
	if err != nil {
		t.Fatalf("DBQUERY$ (select): %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(value.ToString(resultVal)), &rows); err != nil {
		t.Fatalf("decoding result JSON: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["name"] != "ada" {
		t.Errorf("name = %v, want \"ada\"", rows[0]["name"])
	}
}

func TestDBQueryUnknownHandle(t *testing.T) {
	if _, err := dbQuery(nil, []value.Value{value.String("does-not-exist"), value.String("SELECT 1")}); err == nil {
		t.Fatal("expected an error for an unknown handle")
	}
}

func TestDBOpenWrongArity(t *testing.T) {
	if _, err := dbOpen(nil, nil); err == nil {
		t.Fatal("expected an arity error")
	}
}
