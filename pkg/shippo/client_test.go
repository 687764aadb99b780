package shippo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanvales/threadswap-backend/pkg/config"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

func TestCreateShipmentSendsNumericParcelFields(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shipments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "ShippoToken shippo_test_key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Shipment{
			ObjectID: "shp_1",
			Status:   "SUCCESS",
			Rates: []Rate{
				{ObjectID: "rate_1", Provider: "USPS", Amount: "8.95", Currency: "USD"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(config.ShippoConfig{APIKey: "shippo_test_key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{
		AddressFrom: types.Address{Street1: "1 Seller Way", City: "Austin", State: "TX", PostalCode: "78701"},
		AddressTo:   types.Address{Street1: "2 Buyer St", City: "Denver", State: "CO", PostalCode: "80202"},
		Parcel:      types.Parcel{WeightOz: 16, LengthIn: 10, WidthIn: 8, HeightIn: 4},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if shipment.ObjectID != "shp_1" || len(shipment.Rates) != 1 {
		t.Fatalf("unexpected shipment %+v", shipment)
	}

	parcel, ok := captured["parcel"].(map[string]any)
	if !ok {
		t.Fatalf("parcel missing from request: %v", captured)
	}
	for _, field := range []string{"weight_oz", "length_in", "width_in", "height_in"} {
		if _, isNumber := parcel[field].(float64); !isNumber {
			t.Fatalf("parcel field %s must be numeric, got %T", field, parcel[field])
		}
	}
}

func TestRateAmountCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount string
		want   int64
		ok     bool
	}{
		{"8.95", 895, true},
		{"12.00", 1200, true},
		{"0.01", 1, true},
		{"banana", 0, false},
	}
	for _, tc := range cases {
		got, err := Rate{Amount: tc.amount}.AmountCents()
		if tc.ok && err != nil {
			t.Fatalf("AmountCents(%q): %v", tc.amount, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("AmountCents(%q): expected error", tc.amount)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("AmountCents(%q) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestPurchaseTransactionUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"rate expired"}`))
	}))
	defer server.Close()

	client, err := NewClient(config.ShippoConfig{APIKey: "shippo_test_key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.PurchaseTransaction(context.Background(), "rate_1"); err == nil {
		t.Fatal("expected error from upstream 400")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.ShippoConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
