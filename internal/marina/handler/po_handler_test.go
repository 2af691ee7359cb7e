package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/testutil"
)

func seedPOActors(t *testing.T, env *testutil.TestEnv) (storeToken, purchaserToken, adminToken string) {
	t.Helper()
	testutil.SeedUser(t, env.DB, "store-001", "metro", entity.RoleStore)
	testutil.SeedUser(t, env.DB, "buyer-001", "buyer1", entity.RolePurchaser)
	testutil.SeedUser(t, env.DB, "admin-001", "admin", entity.RoleAdmin)
	return testutil.GenerateTestToken("store-001", "metro", entity.RoleStore),
		testutil.GenerateTestToken("buyer-001", "buyer1", entity.RolePurchaser),
		testutil.GenerateTestToken("admin-001", "admin", entity.RoleAdmin)
}

func createPO(t *testing.T, env *testutil.TestEnv, token string, items []map[string]interface{}) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders",
		map[string]interface{}{"items": items}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	return resp["data"].(map[string]interface{})["order"].(map[string]interface{})
}

func submitBid(t *testing.T, env *testutil.TestEnv, token, lineItemID string, rate float64) map[string]interface{} {
	t.Helper()
	w := testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/line-items/"+lineItemID+"/bids",
		map[string]string{"bid_rate": fmt.Sprintf("%g", rate)}, "proof.jpg", token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for bid %g, got %d: %s", rate, w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

func getPO(t *testing.T, env *testutil.TestEnv, token, poID string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/purchase-orders/"+poID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

func bidStatuses(po map[string]interface{}, lineItemID string) map[string]string {
	statuses := map[string]string{}
	for _, rawItem := range po["line_items"].([]interface{}) {
		item := rawItem.(map[string]interface{})
		if item["id"] != lineItemID {
			continue
		}
		bids, ok := item["bids"].([]interface{})
		if !ok {
			return statuses
		}
		for _, rawBid := range bids {
			bid := rawBid.(map[string]interface{})
			statuses[bid["id"].(string)] = bid["status"].(string)
		}
	}
	return statuses
}

// TestPOFullLifecycle walks one purchase order from creation through bids,
// approval, logistics, delivery, and receipt.
func TestPOFullLifecycle(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, adminToken := seedPOActors(t, env)

	testutil.SeedArticleWithRate(t, env.DB, "art-salmon", "ART-SALMON", "Norwegian Salmon", 100)
	testutil.SeedArticleWithRate(t, env.DB, "art-bass", "ART-SEABASS", "Sea Bass", 80)

	po := createPO(t, env, storeToken, []map[string]interface{}{
		{"article_number": "ART-SALMON", "quantity": 100},
		{"article_number": "ART-SEABASS", "quantity": 200},
	})
	if po["status"] != "PENDING_BIDS" {
		t.Fatalf("expected PENDING_BIDS, got %v", po["status"])
	}
	poID := po["id"].(string)

	lineItems := po["line_items"].([]interface{})
	if len(lineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(lineItems))
	}
	var salmonItem, bassItem string
	for _, raw := range lineItems {
		item := raw.(map[string]interface{})
		switch item["article_id"] {
		case "art-salmon":
			salmonItem = item["id"].(string)
			if item["locked_rate"].(float64) != 100 {
				t.Fatalf("expected locked_rate 100, got %v", item["locked_rate"])
			}
		case "art-bass":
			bassItem = item["id"].(string)
		}
	}

	// Bids on salmon: 100 (valid), 90 (valid, lowest), 60 (below band).
	bid100 := submitBid(t, env, purchaserToken, salmonItem, 100)
	bid90 := submitBid(t, env, purchaserToken, salmonItem, 90)
	bid60 := submitBid(t, env, purchaserToken, salmonItem, 60)

	// Viewing the order recomputes recommendations.
	view := getPO(t, env, storeToken, poID)
	statuses := bidStatuses(view, salmonItem)
	if statuses[bid90["id"].(string)] != "RECOMMENDED" {
		t.Fatalf("expected bid 90 RECOMMENDED, got %v", statuses)
	}
	if statuses[bid100["id"].(string)] != "PENDING" || statuses[bid60["id"].(string)] != "PENDING" {
		t.Fatalf("expected other bids PENDING, got %v", statuses)
	}

	// Approve bid 90 on salmon: full allocation, order not yet complete.
	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/line-items/%s/bids/%s/approve", poID, salmonItem, bid90["id"]),
		nil, storeToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	after := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if after["status"] != "PENDING_BIDS" {
		t.Fatalf("order must stay PENDING_BIDS until all items approved, got %v", after["status"])
	}
	for _, raw := range after["line_items"].([]interface{}) {
		item := raw.(map[string]interface{})
		if item["id"] == salmonItem {
			if item["allocated_quantity"].(float64) != 100 {
				t.Fatalf("expected full allocation 100, got %v", item["allocated_quantity"])
			}
		}
	}
	salmonStatuses := bidStatuses(after, salmonItem)
	if salmonStatuses[bid90["id"].(string)] != "APPROVED" {
		t.Fatalf("expected approved bid, got %v", salmonStatuses)
	}
	if salmonStatuses[bid100["id"].(string)] != "REJECTED" || salmonStatuses[bid60["id"].(string)] != "REJECTED" {
		t.Fatalf("sibling bids must be rejected, got %v", salmonStatuses)
	}

	// Approval freezes recommendations: re-viewing changes nothing.
	frozen := getPO(t, env, storeToken, poID)
	if got := bidStatuses(frozen, salmonItem); got[bid60["id"].(string)] != "REJECTED" {
		t.Fatalf("recompute after approval must be a no-op, got %v", got)
	}

	// Bass bid above the locked rate: allocation drops to 10%.
	bassBid := submitBid(t, env, purchaserToken, bassItem, 90)
	w = testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/line-items/%s/bids/%s/approve", poID, bassItem, bassBid["id"]),
		nil, storeToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	after = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if after["status"] != "APPROVED" {
		t.Fatalf("order must advance to APPROVED once all items approved, got %v", after["status"])
	}
	for _, raw := range after["line_items"].([]interface{}) {
		item := raw.(map[string]interface{})
		if item["id"] == bassItem {
			if item["allocated_quantity"].(float64) != 20 {
				t.Fatalf("bid above locked rate must allocate 10%% (20 of 200), got %v", item["allocated_quantity"])
			}
		}
	}

	// No further bids once the order left PENDING_BIDS.
	w = testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/line-items/"+bassItem+"/bids",
		map[string]string{"bid_rate": "85"}, "late.jpg", purchaserToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for late bid, got %d: %s", w.Code, w.Body.String())
	}

	// Admin dispatch.
	w = testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/logistics",
		map[string]string{
			"driver":      "Hassan",
			"pickup_time": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
			"temperature": "4.5",
		}, "pickup.jpg", adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "IN_LOGISTICS" || data["assigned_driver"] != "Hassan" {
		t.Fatalf("expected IN_LOGISTICS with driver, got %v / %v", data["status"], data["assigned_driver"])
	}

	// Delivery proof.
	w = testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/delivery",
		nil, "delivery.jpg", adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "DELIVERED" {
		t.Fatalf("expected DELIVERED, got %v", data["status"])
	}

	// Store accepts receipt.
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/receipt",
		map[string]interface{}{"accepted": true, "notes": "all good"}, storeToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "COMPLETED" || data["grn_notes"] != "all good" {
		t.Fatalf("expected COMPLETED with notes, got %v / %v", data["status"], data["grn_notes"])
	}
}

// TestPORejectReceiptAlsoCompletes pins the current rejection semantics:
// reject ends at COMPLETED too, distinguished only by the notes prefix.
func TestPORejectReceiptAlsoCompletes(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, adminToken := seedPOActors(t, env)
	testutil.SeedArticleWithRate(t, env.DB, "art-tuna", "ART-TUNA", "Yellowfin Tuna", 50)

	po := createPO(t, env, storeToken, []map[string]interface{}{
		{"article_number": "ART-TUNA", "quantity": 10},
	})
	poID := po["id"].(string)
	itemID := po["line_items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	bid := submitBid(t, env, purchaserToken, itemID, 45)
	testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/line-items/%s/bids/%s/approve", poID, itemID, bid["id"]),
		nil, storeToken)
	testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/logistics",
		map[string]string{"driver": "Ali", "pickup_time": time.Now().Format(time.RFC3339)}, "", adminToken)
	testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/delivery",
		nil, "proof.jpg", adminToken)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/receipt",
		map[string]interface{}{"accepted": false, "notes": "two boxes damaged"}, storeToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "COMPLETED" {
		t.Fatalf("rejected receipt still completes the order, got %v", data["status"])
	}
	if data["grn_notes"] != "REJECTED: two boxes damaged" {
		t.Fatalf("expected rejection marker in notes, got %v", data["grn_notes"])
	}
}

// TestPOCreateRefusesWithoutRateLock verifies that line items without a
// locked rate are skipped and an order with nothing resolvable is refused.
func TestPOCreateRefusesWithoutRateLock(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, _, _ := seedPOActors(t, env)

	// Article exists but has no rate lock this week.
	article := &entity.Article{ID: "art-crab", ArticleNumber: "ART-CRAB", Name: "Mud Crab", Unit: "kg"}
	if err := env.DB.Create(article).Error; err != nil {
		t.Fatalf("Failed to seed article: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders",
		map[string]interface{}{"items": []map[string]interface{}{
			{"article_number": "ART-CRAB", "quantity": 50},
		}}, storeToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when no item resolves, got %d: %s", w.Code, w.Body.String())
	}

	// Mixed order: the unresolvable article is reported as skipped.
	testutil.SeedArticleWithRate(t, env.DB, "art-squid", "ART-SQUID", "Squid", 30)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders",
		map[string]interface{}{"items": []map[string]interface{}{
			{"article_number": "ART-CRAB", "quantity": 50},
			{"article_number": "ART-SQUID", "quantity": 10},
		}}, storeToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	skipped := data["skipped_articles"].([]interface{})
	if len(skipped) != 1 || skipped[0] != "ART-CRAB" {
		t.Fatalf("expected ART-CRAB skipped, got %v", skipped)
	}
	order := data["order"].(map[string]interface{})
	if len(order["line_items"].([]interface{})) != 1 {
		t.Fatalf("expected 1 persisted line item")
	}
}

// TestBidUploadFailureLeavesNoBid verifies the upload-before-persist order:
// a blob failure aborts the bid entirely.
func TestBidUploadFailureLeavesNoBid(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, _ := seedPOActors(t, env)
	testutil.SeedArticleWithRate(t, env.DB, "art-salmon", "ART-SALMON", "Norwegian Salmon", 100)

	po := createPO(t, env, storeToken, []map[string]interface{}{
		{"article_number": "ART-SALMON", "quantity": 10},
	})
	itemID := po["line_items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	env.Blob.Fail = true
	w := testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/line-items/"+itemID+"/bids",
		map[string]string{"bid_rate": "90"}, "proof.jpg", purchaserToken)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on blob failure, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Model(&entity.Bid{}).Count(&count)
	if count != 0 {
		t.Fatalf("no bid may be persisted when the upload fails, found %d", count)
	}
}

// TestPORoleGates verifies that role denials are explicit 403s.
func TestPORoleGates(t *testing.T) {
	env := testutil.SetupEnv(t)
	storeToken, purchaserToken, _ := seedPOActors(t, env)
	testutil.SeedArticleWithRate(t, env.DB, "art-salmon", "ART-SALMON", "Norwegian Salmon", 100)

	// Purchaser cannot create purchase orders.
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders",
		map[string]interface{}{"items": []map[string]interface{}{
			{"article_number": "ART-SALMON", "quantity": 10},
		}}, purchaserToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	po := createPO(t, env, storeToken, []map[string]interface{}{
		{"article_number": "ART-SALMON", "quantity": 10},
	})
	itemID := po["line_items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// Store cannot bid.
	w = testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/line-items/"+itemID+"/bids",
		map[string]string{"bid_rate": "90"}, "proof.jpg", storeToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// Store cannot run logistics.
	w = testutil.DoMultipart(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+po["id"].(string)+"/logistics",
		map[string]string{"driver": "X", "pickup_time": time.Now().Format(time.RFC3339)}, "", storeToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// A store cannot read another store's order.
	otherStore := testutil.GenerateTestToken("store-002", "other", entity.RoleStore)
	testutil.SeedUser(t, env.DB, "store-002", "other", entity.RoleStore)
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/purchase-orders/"+po["id"].(string), nil, otherStore)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign store, got %d: %s", w.Code, w.Body.String())
	}
}
