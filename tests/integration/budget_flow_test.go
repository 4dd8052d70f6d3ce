package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"famfin/internal/models"
	"famfin/internal/testutil"
)

func TestBudgetFlow_CreateAndCheckStatus(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "budget@test.com", "password123")

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// Create a monthly budget of $200
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Grocery Budget","amount":20000,"currency":"USD","period":"monthly","start_date":%q}`,
			startDate.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating budget, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	budgetID := uint(budget["id"].(float64))
	if budget["alert_threshold"].(float64) != 80 {
		t.Errorf("expected default threshold 80, got %v", budget["alert_threshold"])
	}

	// Status before any spending
	rec = app.request("GET", fmt.Sprintf("/api/v1/budgets/%d/status", budgetID), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)["status"].(map[string]interface{})
	if status["spent_amount"].(float64) != 0 {
		t.Errorf("expected 0 spent, got %v", status["spent_amount"])
	}
	if status["remaining_amount"].(float64) != 20000 {
		t.Errorf("expected 20000 remaining, got %v", status["remaining_amount"])
	}

	// $80 and $50 land in the ledger this month
	testutil.CreateTestExpense(t, app.DB, userID, 8000, startDate.Add(24*time.Hour))
	testutil.CreateTestExpense(t, app.DB, userID, 5000, startDate.Add(48*time.Hour))

	rec = app.request("GET", fmt.Sprintf("/api/v1/budgets/%d/status", budgetID), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status = parseJSON(t, rec)["status"].(map[string]interface{})
	if status["spent_amount"].(float64) != 13000 {
		t.Errorf("expected 13000 spent, got %v", status["spent_amount"])
	}
	if status["remaining_amount"].(float64) != 7000 {
		t.Errorf("expected 7000 remaining, got %v", status["remaining_amount"])
	}
	if status["spent_percentage"].(float64) != 65 {
		t.Errorf("expected 65 percent, got %v", status["spent_percentage"])
	}
	if status["is_near_limit"].(bool) || status["is_over_budget"].(bool) {
		t.Error("expected neither flag at 65 percent")
	}
	if len(app.Notifier.AlertEvents()) != 0 {
		t.Errorf("expected no alerts at 65 percent, got %d", len(app.Notifier.AlertEvents()))
	}
}

func TestBudgetFlow_ThresholdAlertFiresOnce(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "alerts@test.com", "password123")

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Dining","amount":10000,"currency":"USD","period":"monthly","start_date":%q,"alert_threshold":75}`,
			startDate.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := uint(parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(float64))

	// Cross the threshold
	testutil.CreateTestExpense(t, app.DB, userID, 8000, startDate.Add(time.Hour))

	statusURL := fmt.Sprintf("/api/v1/budgets/%d/status", budgetID)
	rec = app.request("GET", statusURL, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)["status"].(map[string]interface{})
	if !status["is_near_limit"].(bool) {
		t.Error("expected is_near_limit at 80 percent with threshold 75")
	}

	// Re-reading the status does not alert again
	app.request("GET", statusURL, "", token)
	app.request("GET", statusURL, "", token)

	alerts := app.Notifier.AlertEvents()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	if alerts[0].Kind != models.AlertNearLimit {
		t.Errorf("expected NEAR_LIMIT, got %v", alerts[0].Kind)
	}

	// Blowing past the limit fires the over-budget alert, once
	testutil.CreateTestExpense(t, app.DB, userID, 5000, startDate.Add(2*time.Hour))
	app.request("GET", statusURL, "", token)
	app.request("GET", statusURL, "", token)

	alerts = app.Notifier.AlertEvents()
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts total, got %d", len(alerts))
	}
	if alerts[1].Kind != models.AlertOverBudget {
		t.Errorf("expected OVER_BUDGET, got %v", alerts[1].Kind)
	}
}

func TestBudgetFlow_FamilyBudget(t *testing.T) {
	app := setupApp(t)
	ownerToken, ownerID := app.registerUser(t, "famowner@test.com", "password123")
	memberToken, memberID := app.registerUser(t, "fammember@test.com", "password123")
	familyID := app.createFamily(t, ownerToken, "Budget Family", "USD")
	testutil.CreateTestMember(t, app.DB, familyID, memberID, models.RoleMember)

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// A plain member cannot create a family budget
	body := fmt.Sprintf(`{"family_id":%d,"name":"Household","amount":50000,"currency":"USD","period":"monthly","start_date":%q}`,
		familyID, startDate.Format(time.RFC3339))
	rec := app.request("POST", "/api/v1/budgets", body, memberToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for member, got %d", rec.Code)
	}

	// The owner can
	rec = app.request("POST", "/api/v1/budgets", body, ownerToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := uint(parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(float64))

	// Family spend from both members counts, personal spend does not
	famID := familyID
	testutil.CreateTestTransaction(t, app.DB, &models.Transaction{
		UserID: ownerID, FamilyID: &famID, Type: models.TransactionTypeExpense,
		Amount: 20000, Currency: "USD", Date: startDate.Add(time.Hour),
	})
	testutil.CreateTestTransaction(t, app.DB, &models.Transaction{
		UserID: memberID, FamilyID: &famID, Type: models.TransactionTypeExpense,
		Amount: 10000, Currency: "USD", Date: startDate.Add(2 * time.Hour),
	})
	testutil.CreateTestExpense(t, app.DB, memberID, 99000, startDate.Add(3*time.Hour))

	// Any member can read the status
	rec = app.request("GET", fmt.Sprintf("/api/v1/budgets/%d/status", budgetID), "", memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)["status"].(map[string]interface{})
	if status["spent_amount"].(float64) != 30000 {
		t.Errorf("expected 30000 family spend, got %v", status["spent_amount"])
	}

	// The budget shows up in the family listing for members
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d/budgets", familyID), "", memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Errorf("expected 1 family budget, got %v", parseJSON(t, rec)["total_items"])
	}

	// And not in anyone's personal listing
	rec = app.request("GET", "/api/v1/budgets", "", ownerToken)
	if parseJSON(t, rec)["total_items"].(float64) != 0 {
		t.Errorf("expected 0 personal budgets, got %v", parseJSON(t, rec)["total_items"])
	}
}

func TestBudgetFlow_DeactivateKeepsHistory(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "deactivate@test.com", "password123")

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Old Budget","amount":5000,"currency":"USD","period":"monthly","start_date":%q}`,
			startDate.Format(time.RFC3339)), token)
	budgetID := uint(parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(float64))

	rec = app.request("DELETE", fmt.Sprintf("/api/v1/budgets/%d", budgetID), "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// Still readable, flagged inactive
	rec = app.request("GET", fmt.Sprintf("/api/v1/budgets/%d", budgetID), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after deactivation, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["is_active"].(bool) {
		t.Error("expected is_active false after deactivation")
	}

	// Filtered out of the active listing
	rec = app.request("GET", "/api/v1/budgets?is_active=true", "", token)
	if parseJSON(t, rec)["total_items"].(float64) != 0 {
		t.Errorf("expected 0 active budgets, got %v", parseJSON(t, rec)["total_items"])
	}
}
