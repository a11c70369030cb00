package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"wexcommerce/internal/auth"
	"wexcommerce/internal/domain"
	orderrepo "wexcommerce/internal/repository/order"
	productrepo "wexcommerce/internal/repository/product"
	cartsvc "wexcommerce/internal/service/cart"
	checkoutsvc "wexcommerce/internal/service/checkout"
	notificationsvc "wexcommerce/internal/service/notification"
	usersvc "wexcommerce/internal/service/user"
)

const (
	adminID = "11111111-1111-4111-8111-111111111111"
	userID  = "22222222-2222-4222-8222-222222222222"
	otherID = "33333333-3333-4333-8333-333333333333"
)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubTokens struct{}

func (stubTokens) Parse(token string) (*auth.Claims, error) {
	switch token {
	case "admin":
		return &auth.Claims{Type: domain.UserTypeAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: adminID}}, nil
	case "user":
		return &auth.Claims{Type: domain.UserTypeUser, RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}, nil
	}
	return nil, domain.ErrUnauthorized
}

type stubUserService struct {
	signInErr error
	lastCart  string
}

func (s *stubUserService) SignUp(_ context.Context, in usersvc.SignUpInput) (*domain.User, error) {
	return &domain.User{ID: userID, Email: in.Email, PasswordHash: "secret-hash"}, nil
}

func (s *stubUserService) SignIn(_ context.Context, email, _, cartID string) (*domain.User, string, error) {
	s.lastCart = cartID
	if s.signInErr != nil {
		return nil, "", s.signInErr
	}
	return &domain.User{ID: userID, Email: email}, "jwt-token", nil
}

type stubProductService struct {
	product    *domain.Product
	lastFilter productrepo.ListFilter
}

func (s *stubProductService) List(_ context.Context, f productrepo.ListFilter) ([]domain.Product, error) {
	s.lastFilter = f
	return []domain.Product{}, nil
}

func (s *stubProductService) Get(context.Context, string) (*domain.Product, error) {
	if s.product == nil {
		return nil, domain.ErrNotFound
	}
	return s.product, nil
}

func (s *stubProductService) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = "new-product"
	return &p, nil
}

func (s *stubProductService) Update(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

type stubCategoryService struct{}

func (stubCategoryService) List(context.Context) ([]domain.Category, error) {
	return []domain.Category{}, nil
}

type stubSettingService struct {
	lastEnabledOnly bool
}

func (s *stubSettingService) DeliveryTypes(_ context.Context, enabledOnly bool) ([]domain.DeliveryType, error) {
	s.lastEnabledOnly = enabledOnly
	return []domain.DeliveryType{}, nil
}

func (s *stubSettingService) PaymentTypes(_ context.Context, enabledOnly bool) ([]domain.PaymentType, error) {
	s.lastEnabledOnly = enabledOnly
	return []domain.PaymentType{}, nil
}

func (s *stubSettingService) UpdateDeliveryTypes(context.Context, []domain.DeliveryType) error {
	return nil
}

func (s *stubSettingService) UpdatePaymentTypes(context.Context, []domain.PaymentType) error {
	return nil
}

func (s *stubSettingService) Get(context.Context) (*domain.Setting, error) {
	return &domain.Setting{Currency: "USD"}, nil
}

func (s *stubSettingService) Update(_ context.Context, in domain.Setting) (*domain.Setting, error) {
	return &in, nil
}

type stubCartService struct {
	lastAdd cartsvc.AddItemInput
}

func (s *stubCartService) AddItem(_ context.Context, in cartsvc.AddItemInput) (*domain.Cart, error) {
	s.lastAdd = in
	return &domain.Cart{ID: "cart-1"}, nil
}

func (s *stubCartService) UpdateItemQuantity(context.Context, string, int) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1"}, nil
}

func (s *stubCartService) DeleteItem(context.Context, string) (*domain.Cart, error) {
	return nil, domain.ErrNotFound
}

func (s *stubCartService) Get(context.Context, string) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1"}, nil
}

func (s *stubCartService) Count(context.Context, string) (int, error) { return 3, nil }

func (s *stubCartService) UserCartID(context.Context, string) (string, error) { return "cart-1", nil }

func (s *stubCartService) Clear(context.Context, string) error { return nil }

func (s *stubCartService) MergeOnSignIn(context.Context, string, string) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1"}, nil
}

type stubCheckoutService struct {
	lastReq checkoutsvc.Request
	err     error
}

func (s *stubCheckoutService) Checkout(_ context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutsvc.Result{Order: &domain.Order{ID: "order-1", Status: domain.OrderConfirmed}}, nil
}

type stubOrderService struct {
	order         *domain.Order
	updateErr     error
	confirmErr    error
	lastKind      orderrepo.RefKind
	lastRef       string
	lastSignature string
	lastStatus    domain.OrderStatus
}

func (s *stubOrderService) Get(context.Context, string) (*domain.Order, error) {
	if s.order == nil {
		return nil, domain.ErrNotFound
	}
	return s.order, nil
}

func (s *stubOrderService) List(context.Context, string, bool, int, int, domain.OrderFilter) (*domain.OrderPage, error) {
	return &domain.OrderPage{Orders: []domain.Order{}}, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, _ string, to domain.OrderStatus) (*domain.Order, error) {
	s.lastStatus = to
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &domain.Order{ID: "order-1", Status: to}, nil
}

func (s *stubOrderService) ConfirmPayment(_ context.Context, kind orderrepo.RefKind, ref string) (*domain.Order, error) {
	s.lastKind, s.lastRef = kind, ref
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &domain.Order{ID: "order-1", Status: domain.OrderPaid}, nil
}

func (s *stubOrderService) ConfirmPayPal(_ context.Context, _, paypalOrderID string) (*domain.Order, error) {
	s.lastKind, s.lastRef = orderrepo.RefPayPalOrder, paypalOrderID
	return &domain.Order{ID: "order-1", Status: domain.OrderPaid}, nil
}

func (s *stubOrderService) HandleStripeWebhook(_ context.Context, _ []byte, signature string) error {
	s.lastSignature = signature
	return nil
}

func (s *stubOrderService) Delete(context.Context, string) error { return nil }

func (s *stubOrderService) DeleteTemp(context.Context, string, string) error { return nil }

type stubNotificationService struct{}

func (stubNotificationService) List(context.Context, string, int, int) (*notificationsvc.Page, error) {
	return &notificationsvc.Page{Notifications: []domain.Notification{}}, nil
}

func (stubNotificationService) Counter(context.Context, string) (int, error) { return 2, nil }

func (stubNotificationService) MarkAsRead(_ context.Context, _ string, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

func (stubNotificationService) MarkAsUnread(_ context.Context, _ string, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

func (stubNotificationService) Delete(_ context.Context, _ string, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

type testDeps struct {
	users    *stubUserService
	products *stubProductService
	settings *stubSettingService
	carts    *stubCartService
	checkout *stubCheckoutService
	orders   *stubOrderService
}

func newTestRouter(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	td := &testDeps{
		users:    &stubUserService{},
		products: &stubProductService{},
		settings: &stubSettingService{},
		carts:    &stubCartService{},
		checkout: &stubCheckoutService{},
		orders:   &stubOrderService{},
	}
	router, err := buildRouter(logDiscard(), nil, Deps{
		Tokens:          stubTokens{},
		UserSvc:         td.users,
		ProductSvc:      td.products,
		CategorySvc:     stubCategoryService{},
		SettingSvc:      td.settings,
		CartSvc:         td.carts,
		CheckoutSvc:     td.checkout,
		OrderSvc:        td.orders,
		NotificationSvc: stubNotificationService{},
		CORSOrigins:     []string{"https://shop.example.com"},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router, td
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBuildRouter_RequiresDeps(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestBuildRouter_CORS(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("expected allowed origin header, got %q (status %d)", got, rec.Code)
	}

	bare, err := buildRouter(logDiscard(), nil, Deps{
		Tokens:          stubTokens{},
		UserSvc:         &stubUserService{},
		ProductSvc:      &stubProductService{},
		CategorySvc:     stubCategoryService{},
		SettingSvc:      &stubSettingService{},
		CartSvc:         &stubCartService{},
		CheckoutSvc:     &stubCheckoutService{},
		OrderSvc:        &stubOrderService{},
		NotificationSvc: stubNotificationService{},
	})
	if err != nil {
		t.Fatalf("build router without origins: %v", err)
	}
	rec = do(bare, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected plain 200 without CORS headers, got %d %v", rec.Code, rec.Header())
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(router, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = do(router, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without db, got %d", rec.Code)
	}
}

func TestSignUp_HidesPasswordHash(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(router, http.MethodPost, "/api/sign-up", "", `{"email":"jane@example.com","password":"Secret123","fullName":"Jane"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestSignIn(t *testing.T) {
	router, td := newTestRouter(t)
	rec := do(router, http.MethodPost, "/api/sign-in", "", `{"email":"jane@example.com","password":"Secret123","cartId":"anon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"accessToken":"jwt-token"`) || td.users.lastCart != "anon" {
		t.Fatalf("unexpected sign-in body=%s cart=%s", rec.Body.String(), td.users.lastCart)
	}

	td.users.signInErr = usersvc.ErrInvalidCredentials
	rec = do(router, http.MethodPost, "/api/sign-in", "", `{"email":"jane@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAddCartItem_UsesCallerFromToken(t *testing.T) {
	router, td := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/add-cart-item", "user", `{"productId":"p","quantity":1,"userId":"spoofed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if td.carts.lastAdd.UserID != userID {
		t.Fatalf("expected caller %s, got %q", userID, td.carts.lastAdd.UserID)
	}

	rec = do(router, http.MethodPost, "/api/add-cart-item", "garbage", `{"productId":"p","quantity":1}`)
	if rec.Code != http.StatusOK || td.carts.lastAdd.UserID != "" {
		t.Fatalf("invalid token should fall back to anonymous, got %d user=%q", rec.Code, td.carts.lastAdd.UserID)
	}
}

func TestDeleteCartItem_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(router, http.MethodDelete, "/api/delete-cart-item/x", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckout_InvalidCartReturnsProductID(t *testing.T) {
	router, td := newTestRouter(t)
	td.checkout.err = &domain.InvalidCartError{ProductID: "prod-9", Reason: "is out of stock"}

	rec := do(router, http.MethodPost, "/api/checkout", "", `{"user":{"email":"g@example.com","fullName":"G"},"order":{"cartId":"c","deliveryType":"d","paymentType":"p"}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ProductID != "prod-9" {
		t.Fatalf("expected productId in body, got %+v", body)
	}
	if td.checkout.lastReq.Buyer == nil || td.checkout.lastReq.Buyer.Email != "g@example.com" || td.checkout.lastReq.CartID != "c" {
		t.Fatalf("unexpected checkout request %+v", td.checkout.lastReq)
	}
}

func TestCheckout_PaymentErrorIsOpaque(t *testing.T) {
	router, td := newTestRouter(t)
	td.checkout.err = &domain.PaymentError{Provider: domain.PaymentStripe, Op: "create session", Err: errors.New("sk_live_secret rejected")}

	rec := do(router, http.MethodPost, "/api/checkout", "user", `{"order":{"cartId":"c","deliveryType":"d","paymentType":"p"}}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk_live") || !strings.Contains(rec.Body.String(), "payment failed") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if td.checkout.lastReq.UserID != userID {
		t.Fatalf("expected authenticated checkout, got %+v", td.checkout.lastReq)
	}
}

func TestPaymentChecks(t *testing.T) {
	router, td := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/check-checkout-session/cs_1", "", "")
	if rec.Code != http.StatusOK || td.orders.lastKind != orderrepo.RefSession || td.orders.lastRef != "cs_1" {
		t.Fatalf("session check: %d kind=%d ref=%s", rec.Code, td.orders.lastKind, td.orders.lastRef)
	}
	rec = do(router, http.MethodPost, "/api/check-payment-intent/pi_1", "", "")
	if rec.Code != http.StatusOK || td.orders.lastKind != orderrepo.RefPaymentIntent {
		t.Fatalf("intent check: %d kind=%d", rec.Code, td.orders.lastKind)
	}
	rec = do(router, http.MethodPost, "/api/check-paypal-order/order-1/PP-1", "", "")
	if rec.Code != http.StatusOK || td.orders.lastRef != "PP-1" {
		t.Fatalf("paypal check: %d ref=%s", rec.Code, td.orders.lastRef)
	}

	td.orders.confirmErr = domain.Invalid("payment", "payment not completed")
	rec = do(router, http.MethodPost, "/api/check-checkout-session/cs_1", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for open session, got %d", rec.Code)
	}
}

func TestStripeWebhook_ForwardsSignature(t *testing.T) {
	router, td := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe-webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || td.orders.lastSignature != "t=1,v1=abc" {
		t.Fatalf("unexpected webhook handling %d sig=%q", rec.Code, td.orders.lastSignature)
	}
}

func TestUpdateOrder_Authorization(t *testing.T) {
	router, td := newTestRouter(t)
	body := `{"status":"shipped"}`

	if rec := do(router, http.MethodPut, "/api/update-order/"+adminID+"/o", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPut, "/api/update-order/"+userID+"/o", "user", body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPut, "/api/update-order/"+otherID+"/o", "admin", body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched :user, got %d", rec.Code)
	}
	rec := do(router, http.MethodPut, "/api/update-order/"+adminID+"/o", "admin", body)
	if rec.Code != http.StatusOK || td.orders.lastStatus != domain.OrderShipped {
		t.Fatalf("expected 200, got %d status=%s", rec.Code, td.orders.lastStatus)
	}

	td.orders.updateErr = &domain.InvalidTransitionError{From: domain.OrderShipped, To: domain.OrderConfirmed}
	if rec := do(router, http.MethodPut, "/api/update-order/"+adminID+"/o", "admin", `{"status":"confirmed"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetOrder_OwnerOrAdmin(t *testing.T) {
	router, td := newTestRouter(t)
	td.orders.order = &domain.Order{ID: "o", UserID: otherID}

	if rec := do(router, http.MethodGet, "/api/order/o", "user", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for someone else's order, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/api/order/o", "admin", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/orders/"+userID+"/1/10", "user", `{"statuses":["paid"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodPost, "/api/orders/"+userID+"/x/10", "user", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", rec.Code)
	}
}

func TestNotifications(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := do(router, http.MethodGet, "/api/notification-counter/"+userID, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec := do(router, http.MethodGet, "/api/notification-counter/"+userID, "user", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Fatalf("unexpected counter response %d %s", rec.Code, rec.Body.String())
	}
	rec = do(router, http.MethodPost, "/api/mark-notifications-as-read/"+userID, "user", `{"ids":["a","b"]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"updated":2`) {
		t.Fatalf("unexpected mark response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"name":"Mug","priceCents":1000,"quantity":1}`

	if rec := do(router, http.MethodPost, "/api/create-product", "user", body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/api/create-product", "admin", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPut, "/api/update-settings", "admin", `{"currency":"EUR"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCatalog_VisibilityFollowsRole(t *testing.T) {
	router, td := newTestRouter(t)

	do(router, http.MethodGet, "/api/delivery-types", "", "")
	if !td.settings.lastEnabledOnly {
		t.Fatalf("anonymous callers should only see enabled delivery types")
	}
	do(router, http.MethodGet, "/api/delivery-types", "admin", "")
	if td.settings.lastEnabledOnly {
		t.Fatalf("admins should see every delivery type")
	}

	do(router, http.MethodGet, "/api/products?hidden=true", "user", "")
	if td.products.lastFilter.IncludeHidden {
		t.Fatalf("non-admins must not list hidden products")
	}

	td.products.product = &domain.Product{ID: "p", Hidden: true}
	if rec := do(router, http.MethodGet, "/api/product/p", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected hidden product to be 404, got %d", rec.Code)
	}
}
