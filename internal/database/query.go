package database

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains ILIKE için büyük/küçük harf duyarsız "içerir" deseni üretir.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// JSONArray değerlerden jsonb @> karşılaştırmasında kullanılacak dizi metni üretir.
func JSONArray(values ...string) string {
	b, _ := json.Marshal(values)
	return string(b)
}

// Range min/max çiftini kapsayıcı sınırlar olarak uygular; nil taraf yok sayılır.
func Range[T int | float64](db *gorm.DB, column string, lo, hi *T) *gorm.DB {
	if lo != nil {
		db = db.Where(column+" >= ?", *lo)
	}
	if hi != nil {
		db = db.Where(column+" <= ?", *hi)
	}
	return db
}
