// Package nativedb is a native module (§4.11) exposing SQLite access,
// grounded on the original's own sqlitefunc plugin
// (original_source/plugins/sqlitefunc): DBOPEN$ opens a database and hands
// back an opaque handle, DBQUERY$ runs a statement and returns its result
// rows, DBCLOSE releases the connection. Unlike the C++ plugin, which
// returned a raw sqlite3* wrapped in a BasicValue, the handle here is a
// UUID string keyed into a process-wide table — the same keyed-handle
// idiom internal/vm's BSYNC result table uses, chosen because jdbasic's
// opaque-handle Value variant is meant for graphs/tensors/files, not
// *sql.DB specifically, and a string travels through arrays/maps without
// any special-casing.
package nativedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/modules"
	"github.com/jdbasic/jdbasic/internal/value"
)

// Module registers DBOPEN$/DBQUERY$/DBCLOSE.
type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Register(reg modules.RegisterFunc) {
	reg("DBOPEN$", 1, dbOpen)
	reg("DBQUERY$", 2, dbQuery)
	reg("DBCLOSE", 1, dbClose)
}

var handles = struct {
	sync.Mutex
	m map[string]*sql.DB
}{m: make(map[string]*sql.DB)}

func dbErr(msg string) error { return errs.New(errs.IOGeneric, 0, msg) }

func dbOpen(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, dbErr("DBOPEN$ expects a path")
	}
	path := value.ToString(args[0])
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return value.Value{}, dbErr("DBOPEN$: " + err.Error())
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return value.Value{}, dbErr("DBOPEN$: " + err.Error())
	}

	id := uuid.NewString()
	handles.Lock()
	handles.m[id] = db
	handles.Unlock()
	return value.String(id), nil
}

func dbQuery(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, dbErr("DBQUERY$ expects a handle and a statement")
	}
	db, ok := lookup(value.ToString(args[0]))
	if !ok {
		return value.Value{}, dbErr("DBQUERY$: unknown database handle")
	}
	stmt := value.ToString(args[1])

	rows, err := db.Query(stmt)
	if err != nil {
		return value.Value{}, dbErr("DBQUERY$: " + err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.Value{}, dbErr("DBQUERY$: " + err.Error())
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		scanDest := make([]interface{}, len(cols))
		scanPtrs := make([]interface{}, len(cols))
		for i := range scanDest {
			scanPtrs[i] = &scanDest[i]
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return value.Value{}, dbErr("DBQUERY$: " + err.Error())
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = scanDest[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return value.Value{}, dbErr("DBQUERY$: " + err.Error())
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return value.Value{}, dbErr(fmt.Sprintf("DBQUERY$: encoding result: %s", err))
	}
	return value.String(string(encoded)), nil
}

func dbClose(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, dbErr("DBCLOSE expects a handle")
	}
	id := value.ToString(args[0])
	handles.Lock()
	db, ok := handles.m[id]
	delete(handles.m, id)
	handles.Unlock()
	if ok {
		db.Close()
	}
	return value.Nil(), nil
}

func lookup(id string) (*sql.DB, bool) {
	handles.Lock()
	defer handles.Unlock()
	db, ok := handles.m[id]
	return db, ok
}
