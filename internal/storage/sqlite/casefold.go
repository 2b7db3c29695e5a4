package sqlite

import (
	"database/sql/driver"
	"strings"

	msqlite "modernc.org/sqlite"
)

// casefold lowercases text with Unicode rules; the built-in lower() and LIKE
// only fold ASCII.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("casefold", 1, func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}
