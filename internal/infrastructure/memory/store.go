// Package memory implementa los puertos del ledger en memoria.
// Las transacciones se serializan con un mutex y trabajan sobre una copia del estado:
// Commit reemplaza el estado, Rollback descarta la copia.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type stockKey struct {
	productID   string
	warehouseID string
}

type storedMovement struct {
	seq int64
	m   entity.StockMovement
}

type state struct {
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
	variants   map[string]entity.ProductVariant
	stock      map[stockKey]entity.Stock
	movements  []storedMovement
	seq        int64
}

func (s *state) clone() *state {
	return &state{
		products:   maps.Clone(s.products),
		warehouses: maps.Clone(s.warehouses),
		variants:   maps.Clone(s.variants),
		stock:      maps.Clone(s.stock),
		movements:  slices.Clone(s.movements),
		seq:        s.seq,
	}
}

// Store almacén en memoria para tests y modo demo.
type Store struct {
	mu    sync.Mutex
	state *state

	hookMu            sync.Mutex
	pendingConflicts  int
	failMovementWrite func(m *entity.StockMovement) error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{state: &state{
		products:   map[string]entity.Product{},
		warehouses: map[string]entity.Warehouse{},
		variants:   map[string]entity.ProductVariant{},
		stock:      map[stockKey]entity.Stock{},
	}}
}

// Run ejecuta fn sobre una copia del estado; si fn no falla la copia pasa a ser el estado vigente.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(s.repos(work, false)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Repos repositorios fuera de transacción (cada llamada toma el lock).
func (s *Store) Repos() inventory.TxRepos {
	return s.repos(nil, true)
}

func (s *Store) repos(st *state, locking bool) inventory.TxRepos {
	b := base{store: s, st: st, locking: locking}
	return inventory.TxRepos{
		Movements:  &movementRepo{b},
		Stock:      &stockRepo{b},
		Products:   &productRepo{b},
		Warehouses: &warehouseRepo{b},
		Variants:   &variantRepo{b},
	}
}

// InjectConflicts hace que las próximas n llamadas a UpdateQuantity devuelvan ErrConflict.
func (s *Store) InjectConflicts(n int) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.pendingConflicts = n
}

// FailMovementWrites instala un hook que puede rechazar la inserción de movimientos.
func (s *Store) FailMovementWrites(fn func(m *entity.StockMovement) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.failMovementWrite = fn
}

func (s *Store) takeConflict() bool {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if s.pendingConflicts > 0 {
		s.pendingConflicts--
		return true
	}
	return false
}

func (s *Store) movementHook() func(m *entity.StockMovement) error {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	return s.failMovementWrite
}

// base resuelve el estado sobre el que opera un repo: la copia de la tx o el estado vigente con lock.
type base struct {
	store   *Store
	st      *state
	locking bool
}

func (b base) with(fn func(st *state)) {
	if b.locking {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
		fn(b.store.state)
		return
	}
	fn(b.st)
}

// ── Products ─────────────────────────────────────────────────────────────────

type productRepo struct{ base }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	var err error
	r.with(func(st *state) {
		if _, ok := st.products[p.ID]; ok {
			err = domain.ErrDuplicate
			return
		}
		for _, other := range st.products {
			if other.CompanyID == p.CompanyID && other.SKU == p.SKU {
				err = domain.ErrDuplicate
				return
			}
		}
		st.products[p.ID] = *p
	})
	return err
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	r.with(func(st *state) {
		if p, ok := st.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) UpdateQuantity(_ context.Context, productID string, expected, newQty int64) error {
	if r.store.takeConflict() {
		return domain.Conflict(productID, nil)
	}
	var err error
	r.with(func(st *state) {
		p, ok := st.products[productID]
		if !ok {
			err = domain.NotFound("product_id", productID)
			return
		}
		if p.Quantity != expected {
			err = domain.Conflict(productID, nil)
			return
		}
		p.Quantity = newQty
		st.products[productID] = p
	})
	return err
}

func (r *productRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	r.with(func(st *state) {
		if p, ok := st.products[productID]; ok {
			p.Cost = cost
			st.products[productID] = p
		}
	})
	return nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

type stockRepo struct{ base }

func (r *stockRepo) Get(_ context.Context, productID, warehouseID string) (*entity.Stock, error) {
	out := &entity.Stock{ProductID: productID, WarehouseID: warehouseID}
	r.with(func(st *state) {
		if s, ok := st.stock[stockKey{productID, warehouseID}]; ok {
			*out = s
		}
	})
	return out, nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	return r.Get(ctx, productID, warehouseID)
}

func (r *stockRepo) Upsert(_ context.Context, s *entity.Stock) error {
	r.with(func(st *state) {
		st.stock[stockKey{s.ProductID, s.WarehouseID}] = *s
	})
	return nil
}

// ── Warehouses / Variants ────────────────────────────────────────────────────

type warehouseRepo struct{ base }

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.with(func(st *state) { st.warehouses[w.ID] = *w })
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	r.with(func(st *state) {
		if w, ok := st.warehouses[id]; ok {
			out = &w
		}
	})
	return out, nil
}

type variantRepo struct{ base }

func (r *variantRepo) Create(_ context.Context, v *entity.ProductVariant) error {
	r.with(func(st *state) { st.variants[v.ID] = *v })
	return nil
}

func (r *variantRepo) GetByID(_ context.Context, id string) (*entity.ProductVariant, error) {
	var out *entity.ProductVariant
	r.with(func(st *state) {
		if v, ok := st.variants[id]; ok {
			out = &v
		}
	})
	return out, nil
}

// ── Movements ────────────────────────────────────────────────────────────────

type movementRepo struct{ base }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if hook := r.store.movementHook(); hook != nil {
		if err := hook(m); err != nil {
			return err
		}
	}
	r.with(func(st *state) {
		st.seq++
		m.Seq = st.seq
		st.movements = append(st.movements, storedMovement{seq: st.seq, m: *m})
	})
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	r.with(func(st *state) {
		for _, sm := range st.movements {
			if sm.m.ID == id {
				m := sm.m
				out = &m
				return
			}
		}
	})
	return out, nil
}

func matches(m entity.StockMovement, f repository.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// before orden del ledger: created_at DESC, seq DESC.
func before(a storedMovement, c repository.MovementCursor) bool {
	if !a.m.CreatedAt.Equal(c.CreatedAt) {
		return a.m.CreatedAt.Before(c.CreatedAt)
	}
	return a.seq < c.Seq
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter, limit int, after *repository.MovementCursor) ([]*entity.StockMovement, error) {
	var selected []storedMovement
	r.with(func(st *state) {
		for _, sm := range st.movements {
			if matches(sm.m, f) && (after == nil || before(sm, *after)) {
				selected = append(selected, sm)
			}
		}
	})
	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if !a.m.CreatedAt.Equal(b.m.CreatedAt) {
			return a.m.CreatedAt.After(b.m.CreatedAt)
		}
		return a.seq > b.seq
	})
	end := len(selected)
	if limit > 0 && limit < end {
		end = limit
	}
	out := make([]*entity.StockMovement, 0, end)
	for _, sm := range selected[:end] {
		m := sm.m
		out = append(out, &m)
	}
	return out, nil
}

func (r *movementRepo) Summarize(_ context.Context, f repository.MovementFilter) ([]repository.MovementSummary, error) {
	byType := map[entity.MovementType]*repository.MovementSummary{}
	r.with(func(st *state) {
		for _, sm := range st.movements {
			if !matches(sm.m, f) {
				continue
			}
			agg, ok := byType[sm.m.Type]
			if !ok {
				agg = &repository.MovementSummary{Type: sm.m.Type, TotalCost: decimal.Zero}
				byType[sm.m.Type] = agg
			}
			agg.Quantity += sm.m.Quantity
			agg.TotalCost = agg.TotalCost.Add(sm.m.TotalCost)
			agg.Count++
		}
	})
	out := make([]repository.MovementSummary, 0, len(byType))
	for _, agg := range byType {
		out = append(out, *agg)
	}
	return out, nil
}

func (r *movementRepo) Balance(_ context.Context, productID string) (repository.LedgerBalance, error) {
	var bal repository.LedgerBalance
	r.with(func(st *state) {
		for _, sm := range st.movements {
			if sm.m.ProductID != productID {
				continue
			}
			if bal.FirstBefore == nil {
				v := sm.m.QuantityBefore
				bal.FirstBefore = &v
			}
			v := sm.m.QuantityAfter
			bal.LastAfter = &v
			bal.Sum += sm.m.Quantity
			bal.Count++
		}
	})
	return bal, nil
}
