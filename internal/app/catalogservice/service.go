package catalogservice

import (
	"context"
	"fmt"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/cache"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"golang.org/x/sync/singleflight"
)

// ProductView is the listing shape, both on the wire and in the cache.
type ProductView struct {
	ID    int64   `json:"id"`
	Name  string  `json:"nome"`
	Price float64 `json:"preco"`
	Stock int     `json:"estoque"`
}

func toView(p products.Product) ProductView {
	return ProductView{ID: p.ID, Name: p.Name, Price: orders.ToFloat2(p.Price), Stock: p.Stock}
}

// Service serves catalog pages through a read-through cache.
type Service struct {
	uow      ports.UnitOfWork
	products ports.ProductRepository
	cache    ports.Cache
	group    singleflight.Group
	logger   *logger.Logger
}

func New(uow ports.UnitOfWork, productRepo ports.ProductRepository, c ports.Cache, logger *logger.Logger) *Service {
	return &Service{uow: uow, products: productRepo, cache: c, logger: logger}
}

// ListProducts returns one page ordered by id. A cache hit skips the store;
// concurrent misses for the same page share one store read.
func (service *Service) ListProducts(ctx context.Context, skip, limit int) ([]ProductView, error) {
	key := cache.ProductsKey(skip, limit)

	var views []ProductView
	if service.cache.Get(ctx, key, &views) {
		service.logger.Debug(ctx, "cache_hit", "catalog page served from cache", map[string]any{"key": key})
		return views, nil
	}

	v, err, _ := service.group.Do(key, func() (any, error) {
		// the leader's ctx may be cancelled while followers still wait
		loadCtx := context.WithoutCancel(ctx)

		var page []products.Product
		err := service.uow.WithinTx(loadCtx, func(txCtx context.Context) error {
			var err error
			page, err = service.products.List(txCtx, skip, limit)
			return err
		})
		if err != nil {
			return nil, orders.StoreFailure(fmt.Sprintf("list products %s", key), err)
		}

		out := make([]ProductView, len(page))
		for i, p := range page {
			out[i] = toView(p)
		}
		service.cache.Set(loadCtx, key, out, 0)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ProductView), nil
}
