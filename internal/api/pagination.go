package api

import (
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPageNumber   = 100000
)

// Page offset tabanlı sayfalama parametreleri.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageFromQuery "page" ve "limit" değerlerini okur; geçersiz değerler varsayılana düşer.
func PageFromQuery(q map[string]string) Page {
	p := Page{Number: 1, Size: DefaultPageSize}
	if n, err := strconv.Atoi(q["page"]); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(q["limit"]); err == nil && n > 0 {
		p.Size = n
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	// çok büyük sayfa numarası offset'i taşırmasın
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	return p
}

type Pagination struct {
	CurrentPage int
	TotalPages  int
	Total       int64
	HasNextPage bool
	HasPrevPage bool
}

func NewPagination(p Page, total int64) Pagination {
	totalPages := 0
	if p.Size > 0 {
		totalPages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  totalPages,
		Total:       total,
		HasNextPage: p.Number < totalPages,
		HasPrevPage: p.Number > 1,
	}
}

// Map listelerde dönen pagination objesini üretir. totalKey entity'ye göre değişir
// (totalProperties, totalClients, totalViewings).
func (p Pagination) Map(totalKey string) map[string]any {
	return map[string]any{
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		totalKey:      p.Total,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
	}
}

// Sort whitelist'e göre çözülmüş sıralama.
type Sort struct {
	Column string
	Desc   bool
}

func (s Sort) Clause() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// SortFromQuery "sortBy" değerini izin verilen kolonlara eşler; bilinmeyen alan def'e düşer.
func SortFromQuery(q map[string]string, allowed map[string]string, def Sort) Sort {
	s := def
	if col, ok := allowed[q["sortBy"]]; ok {
		s.Column = col
	}
	switch strings.ToLower(q["sortOrder"]) {
	case "asc":
		s.Desc = false
	case "desc":
		s.Desc = true
	}
	return s
}

// CSV virgülle ayrılmış query değerini boşlukları atarak böler.
func CSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Float geçerli bir sayıysa pointer döner, aksi halde nil (filtre yok sayılır).
func Float(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func Int(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func Uint(v string) *uint {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	u := uint(n)
	return &u
}

func Bool(v string) *bool {
	switch strings.ToLower(v) {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}
