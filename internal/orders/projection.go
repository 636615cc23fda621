package orders

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

type ProductLine struct {
	// ID is null once the product has been removed from the catalog.
	ID          *int64          `json:"id"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type OrderView struct {
	ID            int64                `json:"id"`
	ShipAddress   string               `json:"shipAddress"`
	CreatedDate   time.Time            `json:"createdDate"`
	UpdatedDate   time.Time            `json:"updatedDate"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Products      []ProductLine        `json:"products"`
}

// AdminOrderView adds the people involved. Shipper is null until pickup.
type AdminOrderView struct {
	OrderView
	Customer *domain.User `json:"customer"`
	Shipper  *domain.User `json:"shipper"`
}

type CreatedOrder struct {
	ID            int64                `json:"id"`
	CreatedDate   time.Time            `json:"createdDate"`
	UpdatedDate   time.Time            `json:"updatedDate"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	ShipAddress   string               `json:"shipAddress"`
	CustomerID    string               `json:"customerId"`
}

func NewOrderView(o domain.Order) OrderView {
	return OrderView{
		ID:            o.ID,
		ShipAddress:   o.ShipAddress,
		CreatedDate:   o.CreatedAt,
		UpdatedDate:   o.UpdatedAt,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Products: lo.Map(o.Details, func(d domain.OrderDetail, _ int) ProductLine {
			return ProductLine{
				ID:          d.ProductID,
				ProductName: d.ProductName,
				Price:       d.Price,
				Quantity:    d.Quantity,
			}
		}),
	}
}

func NewAdminOrderView(o domain.Order) AdminOrderView {
	return AdminOrderView{
		OrderView: NewOrderView(o),
		Customer:  publicUser(o.Customer),
		Shipper:   publicUser(o.Shipper),
	}
}

func NewCreatedOrder(o domain.Order) CreatedOrder {
	return CreatedOrder{
		ID:            o.ID,
		CreatedDate:   o.CreatedAt,
		UpdatedDate:   o.UpdatedAt,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		ShipAddress:   o.ShipAddress,
		CustomerID:    o.CustomerID,
	}
}

func OrderViews(orders []domain.Order) []OrderView {
	return lo.Map(orders, func(o domain.Order, _ int) OrderView { return NewOrderView(o) })
}

func AdminOrderViews(orders []domain.Order) []AdminOrderView {
	return lo.Map(orders, func(o domain.Order, _ int) AdminOrderView { return NewAdminOrderView(o) })
}

// publicUser drops roles so order listings never leak authorization data.
func publicUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	cp.Roles = nil
	return &cp
}
