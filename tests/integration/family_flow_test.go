package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFamilyFlow_MembershipLifecycle(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := app.registerUser(t, "owner@test.com", "password123")
	memberToken, memberID := app.registerUser(t, "member@test.com", "password123")

	familyID := app.createFamily(t, ownerToken, "Nguyen Household", "USD")

	// Invite the second user and accept via the emailed token
	rec := app.request("POST", fmt.Sprintf("/api/v1/families/%d/invitations", familyID),
		`{"email":"member@test.com","role":"member"}`, ownerToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	invitation := parseJSON(t, rec)["invitation"].(map[string]interface{})
	inviteToken := app.invitationToken(t, uint(invitation["id"].(float64)))

	rec = app.request("POST", "/api/v1/invitations/"+inviteToken+"/accept", "", memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 accepting, got %d: %s", rec.Code, rec.Body.String())
	}

	// Both users can now read the family
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d", familyID), "", memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Member list shows both
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d/members", familyID), "", ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 2 {
		t.Errorf("expected 2 members, got %v", parseJSON(t, rec)["total_items"])
	}

	// Owner promotes the member to admin
	rec = app.request("PUT", fmt.Sprintf("/api/v1/families/%d/members/%d", familyID, memberID),
		`{"role":"admin"}`, ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 promoting, got %d: %s", rec.Code, rec.Body.String())
	}
	member := parseJSON(t, rec)["member"].(map[string]interface{})
	if member["role"] != "admin" {
		t.Errorf("expected admin role, got %v", member["role"])
	}

	// The admin cannot change the owner's role
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d/members", familyID), "", ownerToken)
	var ownerID float64
	for _, item := range parseJSON(t, rec)["data"].([]interface{}) {
		m := item.(map[string]interface{})
		if m["role"] == "owner" {
			ownerID = m["user_id"].(float64)
		}
	}
	rec = app.request("PUT", fmt.Sprintf("/api/v1/families/%d/members/%.0f", familyID, ownerID),
		`{"role":"member"}`, memberToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 admin demoting owner, got %d", rec.Code)
	}

	// Owner removes the admin
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/families/%d/members/%d", familyID, memberID),
		"", ownerToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 removing, got %d: %s", rec.Code, rec.Body.String())
	}

	// The removed user no longer sees the family
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d", familyID), "", memberToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after removal, got %d", rec.Code)
	}
}

func TestFamilyFlow_LastOwnerProtected(t *testing.T) {
	app := setupApp(t)
	ownerToken, ownerID := app.registerUser(t, "soleowner@test.com", "password123")
	familyID := app.createFamily(t, ownerToken, "Solo", "EUR")

	// The sole owner cannot leave
	rec := app.request("DELETE", fmt.Sprintf("/api/v1/families/%d/members/%d", familyID, ownerID),
		"", ownerToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "LAST_OWNER_VIOLATION" {
		t.Errorf("expected LAST_OWNER_VIOLATION, got %v", errObj["code"])
	}

	// Nor demote themselves
	rec = app.request("PUT", fmt.Sprintf("/api/v1/families/%d/members/%d", familyID, ownerID),
		`{"role":"admin"}`, ownerToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 demoting sole owner, got %d", rec.Code)
	}
}

func TestFamilyFlow_DeleteFamily(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := app.registerUser(t, "deleter@test.com", "password123")
	otherToken, _ := app.registerUser(t, "bystander@test.com", "password123")
	familyID := app.createFamily(t, ownerToken, "Short Lived", "USD")

	// A non-member cannot delete
	rec := app.request("DELETE", fmt.Sprintf("/api/v1/families/%d", familyID), "", otherToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for outsider, got %d", rec.Code)
	}

	// The owner can
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/families/%d", familyID), "", ownerToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%d", familyID), "", ownerToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after deletion, got %d", rec.Code)
	}
}
