package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librastore/librashop-backend/api/controllers"
	webhookcontrollers "github.com/librastore/librashop-backend/api/controllers/webhooks"
	"github.com/librastore/librashop-backend/api/middleware"
	"github.com/librastore/librashop-backend/internal/address"
	"github.com/librastore/librashop-backend/internal/cart"
	"github.com/librastore/librashop-backend/internal/catalog"
	checkoutsvc "github.com/librastore/librashop-backend/internal/checkout"
	"github.com/librastore/librashop-backend/internal/contact"
	"github.com/librastore/librashop-backend/internal/coupons"
	"github.com/librastore/librashop-backend/internal/customers"
	"github.com/librastore/librashop-backend/internal/orders"
	stripewebhook "github.com/librastore/librashop-backend/internal/webhooks/stripe"
	"github.com/librastore/librashop-backend/internal/wishlist"
	pkgAuth "github.com/librastore/librashop-backend/pkg/auth"
	"github.com/librastore/librashop-backend/pkg/config"
	"github.com/librastore/librashop-backend/pkg/db"
	"github.com/librastore/librashop-backend/pkg/logger"
	"github.com/librastore/librashop-backend/pkg/redis"
	"github.com/librastore/librashop-backend/pkg/stripe"
)

// RouterParams groups everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Gatherer prometheus.Gatherer

	Customers customers.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Coupons   coupons.Service
	Addresses address.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Wishlist  wishlist.Service
	Contact   contact.Service

	StripeClient   *stripe.Client
	StripeSessions checkoutsvc.StripeSessionClient
	WebhookService *stripewebhook.Service
	WebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, p.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, p.Customers, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Catalog, logg))
			r.Get("/{slug}", controllers.ProductDetail(p.Catalog, logg))
		})
		r.Get("/categories", controllers.CategoryList(p.Catalog, logg))
		r.Get("/offers", controllers.OfferList(p.Coupons, logg))
		r.Post("/contact", controllers.ContactSubmit(p.Contact, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(p.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutSummary(p.Checkout, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(p.Checkout, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(p.Checkout, logg))
			r.Post("/address", controllers.CheckoutSelectAddress(p.Checkout, logg))
			r.Post("/session", controllers.CheckoutSession(p.Checkout, logg))
			r.Get("/confirm", controllers.CheckoutConfirm(p.StripeSessions, p.Orders, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			// Guests create addresses pre-checkout; managing them needs an
			// account.
			r.Post("/", controllers.AddressCreate(p.Addresses, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCustomer(logg))
				r.Get("/", controllers.AddressList(p.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(p.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(p.Addresses, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(p.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
				r.Get("/{orderId}/tracking", controllers.OrderTracking(p.Orders, logg))
			})
			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(p.Wishlist, logg))
				r.Post("/", controllers.WishlistAddItem(p.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemoveItem(p.Wishlist, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, p.Customers, logg))
		r.Use(middleware.RequireRole(pkgAuth.RoleStaff, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(p.Orders, logg))
			r.Get("/orphans", controllers.AdminOrphanOrders(p.Orders, logg))
			r.Post("/relink", controllers.AdminRelinkOrders(p.Orders, logg))
			r.Patch("/{orderId}/tracking", controllers.AdminUpdateTracking(p.Orders, logg))
		})
		r.Route("/contact-messages", func(r chi.Router) {
			r.Get("/", controllers.AdminContactList(p.Contact, logg))
			r.Post("/{messageId}/resolve", controllers.AdminContactResolve(p.Contact, logg))
		})
	})

	return r
}
