//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestValidateCode(t *testing.T) {
	req := validateCodeRequest{
		Code:    "SAVE10",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 2}},
	}
	resp := doPost(t, "/api/codes/validate", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeJSON[validateCodeResponse](t, resp)
	if !result.Valid {
		t.Error("expected valid=true")
	}
	if result.Code != "SAVE10" {
		t.Errorf("code: got %q, want SAVE10", result.Code)
	}
	// 10% of 19.00; the dry run reports pre-tax amounts.
	if got := money(t, result.DiscountAmount); got != 1.9 {
		t.Errorf("discount amount: got %v, want 1.9", got)
	}
	if got := money(t, result.OrderTotal); got != 17.1 {
		t.Errorf("order total: got %v, want 17.1", got)
	}
	if len(result.ApplicableLines) != 1 || result.ApplicableLines[0] != "prod-mug" {
		t.Errorf("applicable lines: got %v, want [prod-mug]", result.ApplicableLines)
	}
}

func TestValidateCode_Lowercase(t *testing.T) {
	req := validateCodeRequest{
		Code:    "save10",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
	}
	resp := doPost(t, "/api/codes/validate", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestValidateCode_Unknown(t *testing.T) {
	req := validateCodeRequest{
		Code:    "NOSUCHCODE",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
	}
	resp := doPost(t, "/api/codes/validate", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestValidateCode_BadFormat(t *testing.T) {
	req := validateCodeRequest{
		Code:    "x!",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
	}
	resp := doPost(t, "/api/codes/validate", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

type createCodeRequest struct {
	Code             string        `json:"code"`
	Percentage       string        `json:"percentage"`
	StartDate        time.Time     `json:"startDate"`
	EndDate          time.Time     `json:"endDate"`
	UsageLimit       int           `json:"usageLimit"`
	AvailableOnline  bool          `json:"availableOnline"`
	AvailableInStore bool          `json:"availableInStore"`
	Target           targetRequest `json:"target"`
}

type targetRequest struct {
	CategoryID string   `json:"categoryId,omitempty"`
	ProductIDs []string `json:"productIds,omitempty"`
	VariantIDs []string `json:"variantIds,omitempty"`
}

func TestCreateCode_ThenRedeem(t *testing.T) {
	now := time.Now().UTC()
	created := createCodeRequest{
		Code:             "ITEST15",
		Percentage:       "15",
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(24 * time.Hour),
		UsageLimit:       2,
		AvailableOnline:  true,
		AvailableInStore: true,
		Target:           targetRequest{CategoryID: "cat-food"},
	}
	resp := doPost(t, "/api/codes", created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The new code only covers the food category, so a mug-only cart is
	// rejected with the category named in the error.
	mismatch := doPost(t, "/api/codes/validate", validateCodeRequest{
		Code:    "ITEST15",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
	})
	defer mismatch.Body.Close()
	if mismatch.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("mismatch: expected 422, got %d", mismatch.StatusCode)
	}

	// A food cart redeems it: 24.00 at 15% off, no tax on beans.
	order := doPost(t, "/api/orders", orderRequest{
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-beans", Quantity: 1}},
		Code:    "ITEST15",
	})
	defer order.Body.Close()
	if order.StatusCode != http.StatusCreated {
		t.Fatalf("order: expected 201, got %d", order.StatusCode)
	}
	placed := decodeJSON[orderResponse](t, order)
	if got := money(t, placed.Discount); got != 3.6 {
		t.Errorf("discount: got %v, want 3.6", got)
	}
	if got := money(t, placed.Total); got != 20.4 {
		t.Errorf("total: got %v, want 20.4", got)
	}
}

// A single-use code redeems exactly once: the order that claims the last
// usage slot succeeds and every later attempt is rejected.
func TestCreateCode_UsageLimitExhausted(t *testing.T) {
	now := time.Now().UTC()
	created := createCodeRequest{
		Code:             "SINGLEUSE",
		Percentage:       "10",
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(24 * time.Hour),
		UsageLimit:       1,
		AvailableOnline:  true,
		AvailableInStore: true,
	}
	resp := doPost(t, "/api/codes", created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	first := doPost(t, "/api/orders", orderRequest{
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
		Code:    "SINGLEUSE",
	})
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first redemption: expected 201, got %d", first.StatusCode)
	}

	second := doPost(t, "/api/orders", orderRequest{
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
		Code:    "SINGLEUSE",
	})
	defer second.Body.Close()
	if second.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("second redemption: expected 422, got %d", second.StatusCode)
	}

	// The dry run reports the exhausted code as invalid too.
	validate := doPost(t, "/api/codes/validate", validateCodeRequest{
		Code:    "SINGLEUSE",
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-mug", Quantity: 1}},
	})
	defer validate.Body.Close()
	if validate.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("validate exhausted: expected 422, got %d", validate.StatusCode)
	}
}

func TestCreateCode_InvalidWindow(t *testing.T) {
	now := time.Now().UTC()
	created := createCodeRequest{
		Code:             "BADWINDOW",
		Percentage:       "10",
		StartDate:        now,
		EndDate:          now.Add(-time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
	}
	resp := doPost(t, "/api/codes", created)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

type createDiscountRequest struct {
	Name             string        `json:"name"`
	Percentage       string        `json:"percentage"`
	Enabled          bool          `json:"enabled"`
	StartDate        time.Time     `json:"startDate"`
	EndDate          time.Time     `json:"endDate"`
	AvailableOnline  bool          `json:"availableOnline"`
	AvailableInStore bool          `json:"availableInStore"`
	Target           targetRequest `json:"target"`
}

func TestCreateDiscount(t *testing.T) {
	now := time.Now().UTC()
	created := createDiscountRequest{
		Name:             "Poster promo",
		Percentage:       "20",
		Enabled:          true,
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(24 * time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
		Target:           targetRequest{ProductIDs: []string{"prod-poster"}},
	}
	resp := doPost(t, "/api/discounts", created)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// The product-scoped discount now applies to poster orders:
	// 12.95 at 20% off is 10.36, plus 10% tax (1.04) = 11.40.
	order := doPost(t, "/api/orders", orderRequest{
		Channel: "ONLINE",
		Lines:   []orderLineRequest{{ProductID: "prod-poster", Quantity: 1}},
	})
	defer order.Body.Close()
	if order.StatusCode != http.StatusCreated {
		t.Fatalf("order: expected 201, got %d", order.StatusCode)
	}
	placed := decodeJSON[orderResponse](t, order)
	if got := money(t, placed.Total); got != 11.4 {
		t.Errorf("total: got %v, want 11.4", got)
	}
}

func TestCreateDiscount_AmbiguousTarget(t *testing.T) {
	now := time.Now().UTC()
	created := createDiscountRequest{
		Name:             "Broken",
		Percentage:       "10",
		Enabled:          true,
		StartDate:        now,
		EndDate:          now.Add(time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
		Target: targetRequest{
			CategoryID: "cat-home",
			ProductIDs: []string{"prod-mug"},
		},
	}
	resp := doPost(t, "/api/discounts", created)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
