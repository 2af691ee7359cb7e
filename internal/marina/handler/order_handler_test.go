package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/testutil"
)

func postOrder(t *testing.T, env *testutil.TestEnv, token, path string, body interface{}, wantCode int) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodPost, path, body, token)
	if w.Code != wantCode {
		t.Fatalf("%s: expected %d, got %d: %s", path, wantCode, w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if data, ok := resp["data"].(map[string]interface{}); ok {
		return data
	}
	return nil
}

// TestLegacyOrderLifecycle walks the legacy single-buy-rate flow including
// the rejection-resubmission loop and the margin quantity adjustment.
func TestLegacyOrderLifecycle(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, adminToken := seedPOActors(t, env)

	order := postOrder(t, env, storeToken, "/api/v1/orders",
		map[string]interface{}{"category": "Fish", "quantity": 10}, http.StatusCreated)
	if order["status"] != "PENDING_PURCHASE" {
		t.Fatalf("expected PENDING_PURCHASE, got %v", order["status"])
	}
	if !strings.HasPrefix(order["order_id"].(string), "BM-") {
		t.Fatalf("expected BM- order id, got %v", order["order_id"])
	}
	id := order["id"].(string)

	// Purchaser claims the order.
	claimed := postOrder(t, env, purchaserToken, "/api/v1/orders/"+id+"/accept", nil, http.StatusOK)
	if claimed["purchaser_id"] == nil {
		t.Fatal("accept must record the purchaser")
	}

	// Buy at 60 against Fish selling rate 100: margin 40, quantity 10*1.05
	// truncated to 10.
	bought := postOrder(t, env, purchaserToken, "/api/v1/orders/"+id+"/purchase",
		map[string]interface{}{"buy_rate": 60}, http.StatusOK)
	if bought["status"] != "PENDING_APPROVAL" {
		t.Fatalf("expected PENDING_APPROVAL, got %v", bought["status"])
	}
	if bought["margin_percent"].(float64) != 40 {
		t.Fatalf("expected margin 40, got %v", bought["margin_percent"])
	}
	if bought["adjusted_quantity"].(float64) != 10 {
		t.Fatalf("expected adjusted quantity 10, got %v", bought["adjusted_quantity"])
	}

	// Admin rejects; the purchaser resubmits at a worse rate.
	rejected := postOrder(t, env, adminToken, "/api/v1/orders/"+id+"/reject", nil, http.StatusOK)
	if rejected["status"] != "REJECTED" {
		t.Fatalf("expected REJECTED, got %v", rejected["status"])
	}

	// Buy at 95: margin 5, thin-margin penalty halves quantity to 5.
	resubmitted := postOrder(t, env, purchaserToken, "/api/v1/orders/"+id+"/purchase",
		map[string]interface{}{"buy_rate": 95}, http.StatusOK)
	if resubmitted["status"] != "PENDING_APPROVAL" {
		t.Fatalf("resubmission after rejection must work, got %v", resubmitted["status"])
	}
	if resubmitted["adjusted_quantity"].(float64) != 5 {
		t.Fatalf("expected halved quantity 5, got %v", resubmitted["adjusted_quantity"])
	}

	postOrder(t, env, adminToken, "/api/v1/orders/"+id+"/approve", nil, http.StatusOK)
	postOrder(t, env, adminToken, "/api/v1/orders/"+id+"/dispatch",
		map[string]interface{}{}, http.StatusOK)
	postOrder(t, env, adminToken, "/api/v1/orders/"+id+"/delivered", nil, http.StatusOK)

	done := postOrder(t, env, storeToken, "/api/v1/orders/"+id+"/confirm", nil, http.StatusOK)
	if done["status"] != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %v", done["status"])
	}
}

// TestLegacyOrderTransitionGuards verifies refused transitions leave the
// order untouched and report a conflict.
func TestLegacyOrderTransitionGuards(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, adminToken := seedPOActors(t, env)

	order := postOrder(t, env, storeToken, "/api/v1/orders",
		map[string]interface{}{"category": "Meat", "quantity": 20}, http.StatusCreated)
	id := order["id"].(string)

	// Cannot confirm receipt before delivery.
	postOrder(t, env, storeToken, "/api/v1/orders/"+id+"/confirm", nil, http.StatusConflict)

	// Cannot approve before a purchase was submitted.
	postOrder(t, env, adminToken, "/api/v1/orders/"+id+"/approve", nil, http.StatusConflict)

	// Unknown category is refused at purchase time.
	other := postOrder(t, env, storeToken, "/api/v1/orders",
		map[string]interface{}{"category": "Electronics", "quantity": 5}, http.StatusCreated)
	postOrder(t, env, purchaserToken, "/api/v1/orders/"+other["id"].(string)+"/purchase",
		map[string]interface{}{"buy_rate": 50}, http.StatusBadRequest)

	var persisted entity.Order
	env.DB.Where("id = ?", id).First(&persisted)
	if persisted.Status != entity.OrderStatusPendingPurchase {
		t.Fatalf("refused transitions must not mutate the order, got %s", persisted.Status)
	}
}

// TestLegacyOrderVisibility checks the role-scoped listing rules.
func TestLegacyOrderVisibility(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, adminToken := seedPOActors(t, env)

	testutil.SeedUser(t, env.DB, "store-002", "other", entity.RoleStore)
	otherStore := testutil.GenerateTestToken("store-002", "other", entity.RoleStore)

	postOrder(t, env, storeToken, "/api/v1/orders",
		map[string]interface{}{"category": "Fish", "quantity": 1}, http.StatusCreated)
	postOrder(t, env, otherStore, "/api/v1/orders",
		map[string]interface{}{"category": "Meat", "quantity": 2}, http.StatusCreated)

	// Each store sees only its own orders.
	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/orders", nil, storeToken)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(data["items"].([]interface{})) != 1 {
		t.Fatalf("store must see exactly its own order, got %v", data["items"])
	}

	// The purchaser sees all open orders.
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/orders", nil, purchaserToken)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(data["items"].([]interface{})) != 2 {
		t.Fatalf("purchaser must see all open orders, got %v", data["items"])
	}

	// The admin sees everything.
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/orders", nil, adminToken)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(data["items"].([]interface{})) != 2 {
		t.Fatalf("admin must see all orders, got %v", data["items"])
	}
}
