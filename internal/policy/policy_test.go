package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

func TestAuthorize(t *testing.T) {
	admin := domain.Caller{ID: "a1", Roles: []domain.Role{domain.RoleAdmin}}
	user := domain.Caller{ID: "u1", Roles: []domain.Role{domain.RoleUser}}
	shipper := domain.Caller{ID: "s1", Roles: []domain.Role{domain.RoleShipper}}
	otherShipper := domain.Caller{ID: "s2", Roles: []domain.Role{domain.RoleShipper}}

	assigned := Resource{CustomerID: "u1", ShipperID: "s1"}

	tests := []struct {
		name    string
		action  Action
		caller  domain.Caller
		res     Resource
		wantErr error
	}{
		{name: "anyone authenticated creates an order", action: OrderCreate, caller: user},
		{name: "anonymous caller is rejected", action: OrderCreate, caller: domain.Caller{}, wantErr: domain.ErrUnauthenticated},

		{name: "shipper picks up", action: OrderPickUp, caller: shipper},
		{name: "admin without shipper role cannot pick up", action: OrderPickUp, caller: admin, wantErr: domain.ErrForbidden},
		{name: "user cannot pick up", action: OrderPickUp, caller: user, wantErr: domain.ErrForbidden},

		{name: "admin completes any order", action: OrderComplete, caller: admin, res: assigned},
		{name: "assigned shipper completes", action: OrderComplete, caller: shipper, res: assigned},
		{name: "other shipper cannot complete", action: OrderComplete, caller: otherShipper, res: assigned, wantErr: domain.ErrForbidden},
		{name: "customer cannot complete", action: OrderComplete, caller: user, res: assigned, wantErr: domain.ErrForbidden},
		{name: "assigned id without shipper role cannot complete", action: OrderComplete, caller: domain.Caller{ID: "s1", Roles: []domain.Role{domain.RoleUser}}, res: assigned, wantErr: domain.ErrForbidden},
		{name: "nobody owns an unassigned order", action: OrderComplete, caller: shipper, res: Resource{CustomerID: "u1"}, wantErr: domain.ErrForbidden},

		{name: "admin deletes", action: OrderDelete, caller: admin},
		{name: "user cannot delete", action: OrderDelete, caller: user, wantErr: domain.ErrForbidden},
		{name: "shipper cannot delete", action: OrderDelete, caller: shipper, wantErr: domain.ErrForbidden},

		{name: "shipper lists waiting", action: OrderListWaiting, caller: shipper},
		{name: "admin lists waiting", action: OrderListWaiting, caller: admin},
		{name: "user cannot list waiting", action: OrderListWaiting, caller: user, wantErr: domain.ErrForbidden},

		{name: "admin lists all", action: OrderListAll, caller: admin},
		{name: "shipper cannot list all", action: OrderListAll, caller: shipper, wantErr: domain.ErrForbidden},

		{name: "customer reads own order", action: OrderGet, caller: user, res: assigned},
		{name: "assigned shipper reads order", action: OrderGet, caller: shipper, res: assigned},
		{name: "stranger cannot read order", action: OrderGet, caller: otherShipper, res: assigned, wantErr: domain.ErrForbidden},

		{name: "admin writes catalog", action: CatalogWrite, caller: admin},
		{name: "user cannot write catalog", action: CatalogWrite, caller: user, wantErr: domain.ErrForbidden},

		{name: "admin registers shipper", action: UserRegisterShipper, caller: admin},
		{name: "shipper cannot register shipper", action: UserRegisterShipper, caller: shipper, wantErr: domain.ErrForbidden},

		{name: "unknown action is denied", action: Action("order.teleport"), caller: admin, wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.action, tt.caller, tt.res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPrecheck(t *testing.T) {
	admin := domain.Caller{ID: "a1", Roles: []domain.Role{domain.RoleAdmin}}
	user := domain.Caller{ID: "u1", Roles: []domain.Role{domain.RoleUser}}
	shipper := domain.Caller{ID: "s1", Roles: []domain.Role{domain.RoleShipper}}

	tests := []struct {
		name    string
		action  Action
		caller  domain.Caller
		wantErr error
	}{
		{name: "admin may complete", action: OrderComplete, caller: admin},
		{name: "any shipper may be the assigned one", action: OrderComplete, caller: shipper},
		{name: "user can never complete", action: OrderComplete, caller: user, wantErr: domain.ErrForbidden},
		{name: "any caller may own an order", action: OrderGet, caller: user},
		{name: "role-only rule still applies", action: OrderDelete, caller: shipper, wantErr: domain.ErrForbidden},
		{name: "anonymous caller", action: OrderGet, caller: domain.Caller{}, wantErr: domain.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Precheck(tt.action, tt.caller)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTableCoversEveryAction(t *testing.T) {
	actions := []Action{
		OrderCreate, OrderListOwn, OrderGet, OrderListWaiting, OrderListAll,
		OrderPickUp, OrderComplete, OrderDelete, CatalogWrite, UserRegisterShipper,
	}
	for _, a := range actions {
		_, ok := table[a]
		assert.True(t, ok, "missing rule for %s", a)
	}
}
