// Package policy decides who may do what. Every role and ownership check in the API is an
// entry in one table, evaluated by Authorize before the operation runs.
package policy

import (
	"fmt"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

type Action string

const (
	OrderCreate      Action = "order.create"
	OrderListOwn     Action = "order.list_own"
	OrderGet         Action = "order.get"
	OrderListWaiting Action = "order.list_waiting"
	OrderListAll     Action = "order.list_all"
	OrderPickUp      Action = "order.pick_up"
	OrderComplete    Action = "order.complete"
	OrderDelete      Action = "order.delete"

	CatalogWrite Action = "catalog.write"

	UserRegisterShipper Action = "user.register_shipper"
)

// Resource carries the ownership facts a rule may look at.
type Resource struct {
	CustomerID string
	ShipperID  string
}

// Rule allows a caller holding any of Roles, or for whom Owner reports true.
// A rule with neither allows every authenticated caller.
type Rule struct {
	Roles []domain.Role
	Owner func(caller domain.Caller, res Resource) bool
	// OwnerRoles, when set, limits the Owner check to callers holding one of them.
	OwnerRoles []domain.Role
}

var table = map[Action]Rule{
	OrderCreate:  {},
	OrderListOwn: {},
	OrderGet: {
		Roles: []domain.Role{domain.RoleAdmin},
		Owner: either(isCustomer, isAssignedShipper),
	},
	OrderListWaiting: {Roles: []domain.Role{domain.RoleShipper, domain.RoleAdmin}},
	OrderListAll:     {Roles: []domain.Role{domain.RoleAdmin}},
	OrderPickUp:      {Roles: []domain.Role{domain.RoleShipper}},
	OrderComplete: {
		Roles:      []domain.Role{domain.RoleAdmin},
		Owner:      isAssignedShipper,
		OwnerRoles: []domain.Role{domain.RoleShipper},
	},
	OrderDelete: {Roles: []domain.Role{domain.RoleAdmin}},

	CatalogWrite: {Roles: []domain.Role{domain.RoleAdmin}},

	UserRegisterShipper: {Roles: []domain.Role{domain.RoleAdmin}},
}

func Authorize(action Action, caller domain.Caller, res Resource) error {
	return authorize(action, caller, &res)
}

// Precheck rejects callers that no resource could authorize for action. Services run it
// before loading the resource so a refused caller cannot tell whether it exists.
func Precheck(action Action, caller domain.Caller) error {
	return authorize(action, caller, nil)
}

// authorize treats a nil res as "any resource".
func authorize(action Action, caller domain.Caller, res *Resource) error {
	if caller.ID == "" {
		return fmt.Errorf("%s: %w", action, domain.ErrUnauthenticated)
	}

	rule, ok := table[action]
	if !ok {
		return fmt.Errorf("unknown action %q: %w", action, domain.ErrForbidden)
	}

	if len(rule.Roles) == 0 && rule.Owner == nil {
		return nil
	}

	if caller.HasAnyRole(rule.Roles...) {
		return nil
	}

	if rule.Owner != nil && (len(rule.OwnerRoles) == 0 || caller.HasAnyRole(rule.OwnerRoles...)) {
		if res == nil || rule.Owner(caller, *res) {
			return nil
		}
	}

	return fmt.Errorf("%s: %w", action, domain.ErrForbidden)
}

func isCustomer(caller domain.Caller, res Resource) bool {
	return res.CustomerID != "" && res.CustomerID == caller.ID
}

func isAssignedShipper(caller domain.Caller, res Resource) bool {
	return res.ShipperID != "" && res.ShipperID == caller.ID
}

func either(preds ...func(domain.Caller, Resource) bool) func(domain.Caller, Resource) bool {
	return func(caller domain.Caller, res Resource) bool {
		for _, p := range preds {
			if p(caller, res) {
				return true
			}
		}
		return false
	}
}
