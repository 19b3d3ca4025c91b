package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/digkill/BizPlanGen/internal/models"
)

// MemoryOrderRepository is the ledger used when no MySQL DSN is configured.
// Contents live as long as the process.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[string]*models.PaymentOrder
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*models.PaymentOrder)}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	order.ID = r.nextID
	order.CreatedAt = now
	order.UpdatedAt = now
	stored := *order
	r.orders[order.OrderID] = &stored
	return nil
}

func (r *MemoryOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

// UpdateStatus follows the MySQL ledger: a paid order is never changed again.
func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, paymentID, payload string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status == models.OrderStatusPaid {
		return false, nil
	}
	o.Status = status
	o.PaymentID = paymentID
	o.RawPayload = payload
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryOrderRepository) ListRecent(ctx context.Context, limit int) ([]models.PaymentOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := make([]models.PaymentOrder, 0, len(r.orders))
	for _, o := range r.orders {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}
