package utils

import (
	"reflect"
	"strconv"
	"strings"

	"gorm.io/gorm/schema"
)

var columnNamer = schema.NamingStrategy{}

// UpdatesFromPtrDTO builds a column->value map containing only non-nil *fields from a pointer DTO.
// Column names follow GORM's naming of the Go field (CatalogItemID -> catalog_item_id);
// a `column` tag overrides it. Fields tagged json:"-" are skipped.
func UpdatesFromPtrDTO(dto any) map[string]any {
	res := make(map[string]any)
	s, ok := structValue(dto)
	if !ok {
		return res
	}
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		if sf.Tag.Get("json") == "-" {
			continue
		}
		name := sf.Tag.Get("column")
		if name == "" {
			name = columnNamer.ColumnName("", sf.Name)
		}
		res[name] = fv.Elem().Interface()
	}
	return res
}

// ParseIntDefault parses a non-negative int, returning def on failure.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
