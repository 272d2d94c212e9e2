package offacts

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const colaProductJSON = `{
	"status": 1,
	"code": "737628064502",
	"product": {
		"product_name": "Coca-Cola",
		"brands": "Coca-Cola",
		"nutriments": {
			"energy-kcal": 42,
			"fat": 0.0,
			"sugars": 10.6,
			"proteins": 0.0,
			"salt": 0.01
		},
		"ingredients_text": "Carbonated water, sugar, caramel color, phosphoric acid, natural flavors, caffeine",
		"serving_size": "330 ml"
	}
}`

func TestGetByCodeFound(t *testing.T) {
	t.Parallel()

	server := setupMockServer(t, map[string]mockResponse{
		"/api/v0/product/737628064502.json": {status: 200, body: colaProductJSON},
	})
	defer server.Close()

	client := setupTestClient(t, server)

	product, err := client.GetByCode(context.Background(), "737628064502")
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola", product.ProductName)
	assert.True(t, product.Nutriments.EnergyKcal.Defined)
	assert.InDelta(t, 42.0, product.Nutriments.EnergyKcal.Value, 0.001)
	assert.InDelta(t, 10.6, product.Nutriments.Sugars.Value, 0.001)
}

func TestGetByCodeUnknownBarcode(t *testing.T) {
	t.Parallel()

	// The API reports unknown barcodes with HTTP 200 and status 0.
	server := setupMockServer(t, map[string]mockResponse{
		"/api/v0/product/000.json": {status: 200, body: `{"status": 0, "status_verbose": "product not found"}`},
	})
	defer server.Close()

	client := setupTestClient(t, server)

	_, err := client.GetByCode(context.Background(), "000")
	require.Error(t, err)
	assert.True(t, IsProductNotFound(err), "unknown barcode should map to product-not-found")
}

func TestSearchByTextFirstResultWins(t *testing.T) {
	t.Parallel()

	body := `{"count": 2, "products": [
		{"product_name": "Salted Chips", "brands": "Crunchy", "nutriments": {"energy-kcal": 536}},
		{"product_name": "Other Chips", "brands": "Rival", "nutriments": {}}
	]}`

	server := setupMockServer(t, map[string]mockResponse{
		"/cgi/search.pl?action=process&json=1&search_simple=1&search_terms=chips": {status: 200, body: body},
	})
	defer server.Close()

	client := setupTestClient(t, server)

	product, err := client.SearchByText(context.Background(), "chips")
	require.NoError(t, err)
	assert.Equal(t, "Salted Chips", product.ProductName)
}

func TestSearchByTextEmptyResults(t *testing.T) {
	t.Parallel()

	server := setupMockServer(t, map[string]mockResponse{
		"/cgi/search.pl?action=process&json=1&search_simple=1&search_terms=xyzzy": {status: 200, body: `{"count": 0, "products": []}`},
	})
	defer server.Close()

	client := setupTestClient(t, server)

	_, err := client.SearchByText(context.Background(), "xyzzy")
	require.Error(t, err)
	assert.True(t, IsProductNotFound(err))
}

func TestGetByCodeNonJSONResponse(t *testing.T) {
	t.Parallel()

	server := setupMockServer(t, map[string]mockResponse{
		"/api/v0/product/123.json": {status: 200, body: "<html>maintenance</html>", contentType: "text/html"},
	})
	defer server.Close()

	client := setupTestClient(t, server)

	_, err := client.GetByCode(context.Background(), "123")
	require.Error(t, err)
	assert.False(t, IsProductNotFound(err), "malformed response is a lookup failure, not a missing product")
}

func TestGetByCodeWithHTTPMock(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		BaseURL:     "https://offacts.test",
		Timeout:     time.Second,
		RateLimitMS: 1,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	transport := httpmock.NewMockTransport()
	client.httpClient.Transport = transport

	transport.RegisterResponder("GET", "https://offacts.test/api/v0/product/737628064502.json",
		httpmock.NewStringResponder(200, colaProductJSON).HeaderSet(map[string][]string{
			"Content-Type": {"application/json"},
		}))

	product, err := client.GetByCode(context.Background(), "737628064502")
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola", product.ProductName)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestMeasureUnmarshalVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		defined bool
		value   float64
	}{
		{"number", `42.5`, true, 42.5},
		{"numeric string", `"10.6"`, true, 10.6},
		{"empty string", `""`, false, 0},
		{"null", `null`, false, 0},
		{"non-numeric string", `"trace"`, false, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var m Measure
			require.NoError(t, m.UnmarshalJSON([]byte(tt.json)))
			assert.Equal(t, tt.defined, m.Defined)
			if tt.defined {
				assert.InDelta(t, tt.value, m.Value, 0.001)
			}
		})
	}
}
