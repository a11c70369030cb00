package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"wexcommerce/internal/db/dbtest"
	"wexcommerce/internal/domain"
)

func TestPostgres_AddItemIncrements(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)
	productID := dbtest.Product(t, pool, "Mug", 1000, 10)

	created, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.UserID != nil {
		t.Fatalf("expected anonymous cart, got %+v", created)
	}
	for i := 0; i < 2; i++ {
		if err := repo.AddItem(ctx, created.ID, productID, 2); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(fetched.Items) != 1 || fetched.Items[0].Quantity != 4 {
		t.Fatalf("expected one item with quantity 4, got %+v", fetched.Items)
	}
	if fetched.TotalCents() != 4000 {
		t.Fatalf("expected total 4000, got %d", fetched.TotalCents())
	}

	if _, err := repo.UpdateItemQuantity(ctx, "00000000-0000-0000-0000-000000000000", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_ConcurrentQuantityUpdatesKeepOneLine(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)
	productID := dbtest.Product(t, pool, "Mug", 1000, 50)

	created, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.AddItem(ctx, created.ID, productID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	itemID := fetched.Items[0].ID

	quantities := []int{2, 3, 5, 7, 11, 13}
	var wg sync.WaitGroup
	errs := make(chan error, len(quantities))
	for _, qty := range quantities {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			cartID, err := repo.UpdateItemQuantity(ctx, itemID, qty)
			if err == nil && cartID != created.ID {
				err = errors.New("update returned cart " + cartID)
			}
			errs <- err
		}(qty)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpdateItemQuantity: %v", err)
		}
	}

	fetched, err = repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(fetched.Items) != 1 || fetched.Items[0].ID != itemID {
		t.Fatalf("expected the single original line, got %+v", fetched.Items)
	}
	final := fetched.Items[0].Quantity
	known := false
	for _, qty := range quantities {
		known = known || qty == final
	}
	if !known {
		t.Fatalf("quantity %d is not one of the written values %v", final, quantities)
	}
	count, err := repo.Count(ctx, created.ID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != final {
		t.Fatalf("expected count %d, got %d", final, count)
	}
}

func TestPostgres_MergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)
	fx := dbtest.Seed(t, pool)
	mug := dbtest.Product(t, pool, "Mug", 1000, 10)
	lamp := dbtest.Product(t, pool, "Lamp", 2500, 10)

	userCartID, err := repo.EnsureForUser(ctx, fx.UserID)
	if err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}
	if err := repo.AddItem(ctx, userCartID, mug, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	anon, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.AddItem(ctx, anon.ID, mug, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.AddItem(ctx, anon.ID, lamp, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	for i := 0; i < 2; i++ {
		merged, err := repo.Merge(ctx, anon.ID, fx.UserID)
		if err != nil {
			t.Fatalf("Merge #%d: %v", i+1, err)
		}
		if merged != userCartID {
			t.Fatalf("expected user cart %s, got %s", userCartID, merged)
		}
	}

	cart, err := repo.GetByUser(ctx, fx.UserID)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	quantities := map[string]int{}
	for _, it := range cart.Items {
		quantities[it.ProductID] = it.Quantity
	}
	if quantities[mug] != 3 || quantities[lamp] != 1 {
		t.Fatalf("unexpected merged quantities %v", quantities)
	}
	if _, err := repo.GetByID(ctx, anon.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected anonymous cart to be gone, got %v", err)
	}
}

func TestPostgres_MergeReassignsWhenUserHasNoCart(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)
	fx := dbtest.Seed(t, pool)
	mug := dbtest.Product(t, pool, "Mug", 1000, 10)

	anon, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.AddItem(ctx, anon.ID, mug, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	merged, err := repo.Merge(ctx, anon.ID, fx.UserID)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	again, err := repo.Merge(ctx, anon.ID, fx.UserID)
	if err != nil {
		t.Fatalf("Merge again: %v", err)
	}
	if merged != anon.ID || again != anon.ID {
		t.Fatalf("expected reassignment of %s, got %s and %s", anon.ID, merged, again)
	}

	cart, err := repo.GetByID(ctx, anon.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if cart.UserID == nil || *cart.UserID != fx.UserID || cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", cart)
	}
}
