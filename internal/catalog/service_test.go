package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

type memRepo struct {
	products map[int64]Product
	seq      int64
}

func newMemRepo() *memRepo {
	return &memRepo{products: make(map[int64]Product)}
}

func (m *memRepo) Insert(_ context.Context, product Product) (Product, error) {
	for _, existing := range m.products {
		if strings.EqualFold(existing.SKU, product.SKU) {
			return Product{}, &shared.ConflictError{Msg: "sku already exists"}
		}
	}
	m.seq++
	product.ID = m.seq
	m.products[product.ID] = product
	return product, nil
}

func (m *memRepo) Update(_ context.Context, product Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return &shared.NotFoundError{Entity: "product", ID: product.ID}
	}
	for id, existing := range m.products {
		if id != product.ID && strings.EqualFold(existing.SKU, product.SKU) {
			return &shared.ConflictError{Msg: "sku already exists"}
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	delete(m.products, id)
	return nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Product, error) {
	product, ok := m.products[id]
	if !ok {
		return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return product, nil
}

func (m *memRepo) List(_ context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type memAudit struct {
	entries []shared.AuditEntry
	err     error
}

func (m *memAudit) Record(_ context.Context, entry shared.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) actions() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type memCache struct {
	bumps int
}

func (m *memCache) Bump(context.Context) error {
	m.bumps++
	return nil
}

var testActor = shared.Actor{Name: "dina", Role: "staff"}

func newTestService(t *testing.T) (*Service, *memRepo, *memAudit) {
	t.Helper()
	repo := newMemRepo()
	auditLog := &memAudit{}
	svc := NewService(repo, auditLog, &memCache{}, slog.Default())
	return svc, repo, auditLog
}

func validInput() CreateInput {
	return CreateInput{
		Name:         "Arabica Beans 1kg",
		SKU:          "COF-001",
		Category:     "coffee",
		CostPrice:    types.Money(85_00),
		SellingPrice: types.Money(120_00),
	}
}

func TestCreateProduct(t *testing.T) {
	svc, repo, auditLog := newTestService(t)

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "COF-001", created.SKU)
	require.Zero(t, created.StockQuantity)

	require.Len(t, repo.products, 1)
	require.Equal(t, []string{"create_product"}, auditLog.actions())
	require.Equal(t, "dina", auditLog.entries[0].Actor)
}

func TestCreateProductNormalizesSKU(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validInput()
	input.SKU = "  cof-001 "
	created, err := svc.Create(context.Background(), input, testActor)
	require.NoError(t, err)
	require.Equal(t, "COF-001", created.SKU)
}

func TestCreateProductDuplicateSKUCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)

	dup := validInput()
	dup.Name = "Another Bag"
	dup.SKU = "cof-001"
	_, err = svc.Create(context.Background(), dup, testActor)

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty name", func(in *CreateInput) { in.Name = "" }},
		{"blank sku", func(in *CreateInput) { in.SKU = "   " }},
		{"empty category", func(in *CreateInput) { in.Category = "" }},
		{"negative cost", func(in *CreateInput) { in.CostPrice = -1 }},
		{"negative price", func(in *CreateInput) { in.SellingPrice = -1 }},
		{"negative threshold", func(in *CreateInput) { in.ReorderThreshold = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input, testActor)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestUpdateProductPartial(t *testing.T) {
	svc, _, auditLog := newTestService(t)

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)

	newPrice := types.Money(135_00)
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{SellingPrice: &newPrice}, testActor)
	require.NoError(t, err)
	require.Equal(t, newPrice, updated.SellingPrice)
	require.Equal(t, created.Name, updated.Name)
	require.Equal(t, created.SKU, updated.SKU)
	require.Equal(t, created.CostPrice, updated.CostPrice)

	require.Equal(t, []string{"create_product", "update_product"}, auditLog.actions())
}

func TestUpdateProductRejectsEmptyName(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(context.Background(), created.ID, UpdateInput{Name: &empty}, testActor)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateProductUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	name := "Ghost"
	_, err := svc.Update(context.Background(), 99, UpdateInput{Name: &name}, testActor)
	var notFound *shared.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteProduct(t *testing.T) {
	svc, repo, auditLog := newTestService(t)

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, testActor))
	require.Empty(t, repo.products)
	require.Equal(t, []string{"create_product", "delete_product"}, auditLog.actions())
}

func TestAuditFailureDoesNotBlockCreate(t *testing.T) {
	repo := newMemRepo()
	auditLog := &memAudit{err: errors.New("audit store down")}
	svc := NewService(repo, auditLog, &memCache{}, slog.Default())

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestMutationsBumpReportCache(t *testing.T) {
	repo := newMemRepo()
	cache := &memCache{}
	svc := NewService(repo, &memAudit{}, cache, slog.Default())

	created, err := svc.Create(context.Background(), validInput(), testActor)
	require.NoError(t, err)
	require.Equal(t, 1, cache.bumps)

	newPrice := types.Money(140_00)
	_, err = svc.Update(context.Background(), created.ID, UpdateInput{SellingPrice: &newPrice}, testActor)
	require.NoError(t, err)
	require.Equal(t, 2, cache.bumps)

	require.NoError(t, svc.Delete(context.Background(), created.ID, testActor))
	require.Equal(t, 3, cache.bumps)
}

func TestRejectedMutationDoesNotBumpCache(t *testing.T) {
	repo := newMemRepo()
	cache := &memCache{}
	svc := NewService(repo, &memAudit{}, cache, slog.Default())

	_, err := svc.Create(context.Background(), CreateInput{}, testActor)
	require.Error(t, err)
	require.Zero(t, cache.bumps)
}

func TestIsLowStockBoundaries(t *testing.T) {
	cases := []struct {
		qty  int64
		want bool
	}{
		{0, true},
		{1, true},
		{5, true},
		{6, false},
		{120, false},
	}
	for _, tc := range cases {
		p := Product{StockQuantity: tc.qty}
		require.Equal(t, tc.want, p.IsLowStock(), "qty=%d", tc.qty)
	}
}

func TestStockValue(t *testing.T) {
	p := Product{CostPrice: types.Money(85_00), StockQuantity: 3}
	require.Equal(t, types.Money(255_00), p.StockValue())
}
