package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a Postgres uuid[] column onto a []uuid.UUID. The sqlite
// test rig stores the same literal form as text.
type UUIDArray []uuid.UUID

// Scan implements sql.Scanner for the Postgres array literal form
// "{uuid,uuid}". NULL scans to an empty, non-nil slice.
func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.decodeLiteral(v)
	case []byte:
		return a.decodeLiteral(string(v))
	default:
		return fmt.Errorf("UUIDArray: cannot scan %T", src)
	}
}

// Value implements driver.Valuer, encoding the Postgres array literal.
func (a UUIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String(), nil
}

func (a *UUIDArray) decodeLiteral(s string) error {
	body := strings.TrimSpace(s)
	body = strings.TrimPrefix(body, "{")
	body = strings.TrimSuffix(body, "}")
	if strings.TrimSpace(body) == "" {
		*a = UUIDArray{}
		return nil
	}

	elems := strings.Split(body, ",")
	ids := make([]uuid.UUID, 0, len(elems))
	for _, elem := range elems {
		elem = strings.Trim(strings.TrimSpace(elem), `"`)
		id, err := uuid.Parse(elem)
		if err != nil {
			return fmt.Errorf("UUIDArray: element %q: %w", elem, err)
		}
		ids = append(ids, id)
	}
	*a = ids
	return nil
}
