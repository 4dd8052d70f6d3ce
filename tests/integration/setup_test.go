package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"famfin/internal/handlers"
	"famfin/internal/logger"
	"famfin/internal/middleware"
	"famfin/internal/models"
	"famfin/internal/services"
	"famfin/internal/testutil"
	"famfin/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Notifier *testutil.CaptureNotifier
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Family{},
		&models.FamilyMember{},
		&models.Invitation{},
		&models.Category{},
		&models.Transaction{},
		&models.Budget{},
		&models.BudgetAlert{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	notifier := testutil.NewCaptureNotifier()

	// Services
	userService := services.NewUserService(db)
	familyService := services.NewFamilyService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	invitationService := services.NewInvitationService(db, familyService, userService, notifier)
	budgetService := services.NewBudgetService(db, familyService, categoryService, notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	familyHandler := handlers.NewFamilyHandler(familyService, auditService)
	invitationHandler := handlers.NewInvitationHandler(invitationService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Public invitation routes
	v1.GET("/invitations/:token", invitationHandler.GetInvitation)
	v1.POST("/invitations/:token/decline", invitationHandler.Decline)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/invitations/:token/accept", invitationHandler.Accept)

	families := protected.Group("/families")
	families.POST("", familyHandler.CreateFamily)
	families.GET("/:id", familyHandler.GetFamily)
	families.DELETE("/:id", familyHandler.DeleteFamily)
	families.GET("/:id/members", familyHandler.ListMembers)
	families.PUT("/:id/members/:userID", familyHandler.ChangeRole)
	families.DELETE("/:id/members/:userID", familyHandler.RemoveMember)
	families.POST("/:id/invitations", invitationHandler.Invite)
	families.GET("/:id/invitations", invitationHandler.ListInvitations)
	families.DELETE("/:id/invitations/:invitationID", invitationHandler.Revoke)
	families.GET("/:id/budgets", budgetHandler.GetFamilyBudgets)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeactivateBudget)
	budgets.GET("/:id/status", budgetHandler.GetBudgetStatus)

	return &testApp{DB: db, Router: router, Notifier: notifier}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken string, userID uint) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), uint(user["id"].(float64))
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createFamily creates a family over the API and returns its ID.
func (app *testApp) createFamily(t *testing.T, token, name, currency string) uint {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"currency":%q}`, name, currency)
	rec := app.request("POST", "/api/v1/families", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create family failed: %d %s", rec.Code, rec.Body.String())
	}
	family := parseJSON(t, rec)["family"].(map[string]interface{})
	return uint(family["id"].(float64))
}

// invitationToken pulls an invitation's redemption token out of the
// captured notifier events; the API never returns it to the inviter.
func (app *testApp) invitationToken(t *testing.T, invitationID uint) string {
	t.Helper()
	for _, event := range app.Notifier.InvitationEvents() {
		if event.InvitationID == invitationID {
			return event.Token
		}
	}
	t.Fatalf("no invitation event captured for invitation %d", invitationID)
	return ""
}
