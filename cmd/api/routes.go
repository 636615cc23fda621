package main

import (
	"net/http"

	"github.com/joao-fontenele/storefront-api/internal/catalog"
	"github.com/joao-fontenele/storefront-api/internal/orders"
	"github.com/joao-fontenele/storefront-api/internal/telemetry"
	"github.com/joao-fontenele/storefront-api/internal/users"
)

type application struct {
	requires func(http.HandlerFunc) http.HandlerFunc

	users   *users.Handler
	catalog *catalog.Handler
	orders  *orders.Handler

	metrics http.Handler
	health  http.HandlerFunc
	// images is nil unless files are stored on local disk.
	images http.Handler
}

func (app *application) routes() *http.ServeMux {
	mux := http.NewServeMux()

	public := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	authed := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(app.requires(h)))
	}

	public("POST /api/user/register", app.users.HandleRegister)
	public("POST /api/user/login", app.users.HandleLogin)
	authed("GET /api/user/current-user", app.users.HandleCurrentUser)
	authed("POST /api/user/register-shipper", app.users.HandleRegisterShipper)

	public("GET /api/products", app.catalog.HandleListProducts)
	public("GET /api/product", app.catalog.HandleListProducts)
	public("GET /api/product/{id}", app.catalog.HandleGetProduct)
	authed("POST /api/product", app.catalog.HandleCreateProduct)
	authed("PATCH /api/product/{id}", app.catalog.HandlePatchProduct)
	authed("DELETE /api/product/{id}", app.catalog.HandleDeleteProduct)

	public("GET /api/category", app.catalog.HandleListCategories)
	public("GET /api/category/{id}", app.catalog.HandleGetCategory)
	authed("POST /api/category", app.catalog.HandleCreateCategory)
	authed("PUT /api/category/{id}", app.catalog.HandleUpdateCategory)
	authed("DELETE /api/category/{id}", app.catalog.HandleDeleteCategory)

	authed("POST /api/order", app.orders.HandleCreate)
	authed("GET /api/order/my-order", app.orders.HandleListMine)
	authed("GET /api/order/waiting", app.orders.HandleListWaiting)
	authed("GET /api/order/admin", app.orders.HandleListAll)
	authed("GET /api/order/{id}", app.orders.HandleGet)
	authed("PATCH /api/order/{id}/pick-up", app.orders.HandlePickUp)
	authed("PATCH /api/order/{id}/mark-complete", app.orders.HandleMarkComplete)
	authed("PATCH /api/order/{id}/delete", app.orders.HandleDelete)

	mux.Handle("GET /metrics", app.metrics)
	mux.HandleFunc("GET /healthz", app.health)
	if app.images != nil {
		mux.Handle("GET /images/", http.StripPrefix("/images/", app.images))
	}

	return mux
}
