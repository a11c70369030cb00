package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/auth"
	"wexcommerce/internal/domain"
	orderrepo "wexcommerce/internal/repository/order"
	productrepo "wexcommerce/internal/repository/product"
	cartsvc "wexcommerce/internal/service/cart"
	checkoutsvc "wexcommerce/internal/service/checkout"
	notificationsvc "wexcommerce/internal/service/notification"
	usersvc "wexcommerce/internal/service/user"
)

type tokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type userService interface {
	SignUp(ctx context.Context, in usersvc.SignUpInput) (*domain.User, error)
	SignIn(ctx context.Context, email, password, cartID string) (*domain.User, string, error)
}

type productService interface {
	List(ctx context.Context, f productrepo.ListFilter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type categoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type settingService interface {
	DeliveryTypes(ctx context.Context, enabledOnly bool) ([]domain.DeliveryType, error)
	PaymentTypes(ctx context.Context, enabledOnly bool) ([]domain.PaymentType, error)
	UpdateDeliveryTypes(ctx context.Context, updates []domain.DeliveryType) error
	UpdatePaymentTypes(ctx context.Context, updates []domain.PaymentType) error
	Get(ctx context.Context) (*domain.Setting, error)
	Update(ctx context.Context, in domain.Setting) (*domain.Setting, error)
}

type cartService interface {
	AddItem(ctx context.Context, in cartsvc.AddItemInput) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (*domain.Cart, error)
	DeleteItem(ctx context.Context, itemID string) (*domain.Cart, error)
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	Count(ctx context.Context, cartID string) (int, error)
	UserCartID(ctx context.Context, userID string) (string, error)
	Clear(ctx context.Context, cartID string) error
	MergeOnSignIn(ctx context.Context, anonymousCartID, userID string) (*domain.Cart, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error)
}

type orderService interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, callerID string, isAdmin bool, page, size int, f domain.OrderFilter) (*domain.OrderPage, error)
	UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, kind orderrepo.RefKind, ref string) (*domain.Order, error)
	ConfirmPayPal(ctx context.Context, orderID, paypalOrderID string) (*domain.Order, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
	Delete(ctx context.Context, id string) error
	DeleteTemp(ctx context.Context, orderID, sessionID string) error
}

type notificationService interface {
	List(ctx context.Context, userID string, page, size int) (*notificationsvc.Page, error)
	Counter(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, userID string, ids []string) (int64, error)
	MarkAsUnread(ctx context.Context, userID string, ids []string) (int64, error)
	Delete(ctx context.Context, userID string, ids []string) (int64, error)
}

type orderFeed interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// Deps carries the services the router depends on.
type Deps struct {
	Tokens          tokenParser
	UserSvc         userService
	ProductSvc      productService
	CategorySvc     categoryService
	SettingSvc      settingService
	CartSvc         cartService
	CheckoutSvc     checkoutService
	OrderSvc        orderService
	NotificationSvc notificationService
	// OrderFeed streams order events to admin sockets; nil disables the route.
	OrderFeed   orderFeed
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Tokens == nil:
		return errors.New("httpserver: token parser is required")
	case d.UserSvc == nil, d.ProductSvc == nil, d.CategorySvc == nil, d.SettingSvc == nil:
		return errors.New("httpserver: catalog and user services are required")
	case d.CartSvc == nil, d.CheckoutSvc == nil, d.OrderSvc == nil, d.NotificationSvc == nil:
		return errors.New("httpserver: cart, checkout, order and notification services are required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	// cors.New panics without origins; same-origin deployments just skip it.
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		logger.Printf("http: no CORS origins configured, cross-origin requests disabled")
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}
	optional := optionalAuth(deps.Tokens)
	required := requireAuth(deps.Tokens)
	admin := requireAdmin()

	api := router.Group("/api")

	api.POST("/sign-up", h.signUp)
	api.POST("/sign-in", h.signIn)

	api.GET("/products", optional, h.listProducts)
	api.GET("/product/:id", optional, h.getProduct)
	api.GET("/categories", h.listCategories)
	api.GET("/delivery-types", optional, h.listDeliveryTypes)
	api.GET("/payment-types", optional, h.listPaymentTypes)
	api.GET("/settings", h.getSettings)

	api.POST("/add-cart-item", optional, h.addCartItem)
	api.PUT("/update-cart-item/:id", h.updateCartItem)
	api.DELETE("/delete-cart-item/:id", h.deleteCartItem)
	api.GET("/cart/:id", h.getCart)
	api.GET("/cart-count/:id", h.cartCount)
	api.DELETE("/clear-cart/:id", h.clearCart)
	api.GET("/user-cart-id/:user", required, sameUser(), h.userCartID)
	api.POST("/merge-cart/:cartId", required, h.mergeCart)

	api.POST("/checkout", optional, h.checkout)
	api.POST("/check-checkout-session/:sessionId", h.checkCheckoutSession)
	api.POST("/check-payment-intent/:paymentIntentId", h.checkPaymentIntent)
	api.POST("/check-paypal-order/:orderId/:paypalOrderId", h.checkPayPalOrder)
	api.POST("/stripe-webhook", h.stripeWebhook)
	api.DELETE("/delete-temp-order/:orderId/:sessionId", h.deleteTempOrder)

	api.GET("/order/:id", required, h.getOrder)
	api.POST("/orders/:user/:page/:size", required, sameUser(), h.listOrders)
	api.PUT("/update-order/:user/:id", required, sameUser(), admin, h.updateOrder)
	api.DELETE("/delete-order/:user/:id", required, sameUser(), admin, h.deleteOrder)

	api.GET("/notification-counter/:user", required, sameUser(), h.notificationCounter)
	api.POST("/notifications/:user/:page/:size", required, sameUser(), h.listNotifications)
	api.POST("/mark-notifications-as-read/:user", required, sameUser(), h.markNotificationsRead)
	api.POST("/mark-notifications-as-unread/:user", required, sameUser(), h.markNotificationsUnread)
	api.POST("/delete-notifications/:user", required, sameUser(), h.deleteNotifications)

	api.POST("/create-product", required, admin, h.createProduct)
	api.PUT("/update-product/:id", required, admin, h.updateProduct)
	api.PUT("/update-delivery-types", required, admin, h.updateDeliveryTypes)
	api.PUT("/update-payment-types", required, admin, h.updatePaymentTypes)
	api.PUT("/update-settings", required, admin, h.updateSettings)
	if deps.OrderFeed != nil {
		api.GET("/ws/orders", queryToken(), required, admin, h.orderFeed)
	}

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
