package property

import (
	"context"

	"proptrack-backend/internal/models"
)

const (
	DefaultSimilarLimit = 4
	MaxSimilarLimit     = 20

	priceBandLow  = 0.5
	priceBandHigh = 1.5
)

// SimilarQuery tek bir kademenin kriterleri. nil alanlar filtre uygulanmadığı anlamına gelir.
// Tip ve aktif durum her kademede zorunludur.
type SimilarQuery struct {
	Type     models.PropertyType
	City     *string
	State    *string
	MinPrice *float64
	MaxPrice *float64
	Exclude  []uint
	Limit    int
}

// SimilarFinder benzer ilan çözümleyicinin ihtiyaç duyduğu depolama işlemleri.
// Sonuçlar en yeniden eskiye sıralı dönmelidir.
type SimilarFinder interface {
	Get(ctx context.Context, id uint) (*models.Property, error)
	FindSimilar(ctx context.Context, q SimilarQuery) ([]models.Property, error)
}

type SimilarResolver struct {
	finder SimilarFinder
}

func NewSimilarResolver(finder SimilarFinder) *SimilarResolver {
	return &SimilarResolver{finder: finder}
}

// Resolve referans ilana benzeyen en fazla limit kadar aktif ilanı döner.
// Kademeler sırayla gevşetilir (tip+şehir+fiyat bandı, tip+emirlik, tip+fiyat bandı, sadece tip)
// ve bir kademe ancak kota dolmadıysa çalışır. Referans bulunamazsa gorm.ErrRecordNotFound döner.
func (r *SimilarResolver) Resolve(ctx context.Context, id uint, limit int) ([]models.Property, error) {
	ref, err := r.finder.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	if limit > MaxSimilarLimit {
		limit = MaxSimilarLimit
	}

	minPrice := ref.Price * priceBandLow
	maxPrice := ref.Price * priceBandHigh
	city := ref.Location.City
	state := ref.Location.State

	tiers := []SimilarQuery{
		{City: &city, MinPrice: &minPrice, MaxPrice: &maxPrice},
		{State: &state},
		{MinPrice: &minPrice, MaxPrice: &maxPrice},
		{},
	}

	result := make([]models.Property, 0, limit)
	seen := map[uint]bool{ref.ID: true}
	exclude := []uint{ref.ID}

	for _, tier := range tiers {
		remaining := limit - len(result)
		if remaining <= 0 {
			break
		}

		tier.Type = ref.Type
		tier.Limit = remaining
		tier.Exclude = append([]uint(nil), exclude...)

		found, err := r.finder.FindSimilar(ctx, tier)
		if err != nil {
			return nil, err
		}

		for _, p := range found {
			if seen[p.ID] || len(result) == limit {
				continue
			}
			seen[p.ID] = true
			exclude = append(exclude, p.ID)
			result = append(result, p)
		}
	}

	return result, nil
}
