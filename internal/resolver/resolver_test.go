package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/offacts"
)

// fakeRemote counts lookups and serves scripted results.
type fakeRemote struct {
	codeCalls   atomic.Int64
	searchCalls atomic.Int64
	product     *offacts.Product
	err         error
}

func (f *fakeRemote) GetByCode(ctx context.Context, code string) (*offacts.Product, error) {
	f.codeCalls.Add(1)
	return f.product, f.err
}

func (f *fakeRemote) SearchByText(ctx context.Context, term string) (*offacts.Product, error) {
	f.searchCalls.Add(1)
	return f.product, f.err
}

func notFoundErr(msg string) error {
	return errors.Newf("%s", msg).
		Category(errors.CategoryProductNotFound).
		Component("offacts").
		Build()
}

func colaProduct() *offacts.Product {
	defined := func(v float64) offacts.Measure { return offacts.Measure{Value: v, Defined: true} }
	return &offacts.Product{
		Code:        "737628064502",
		ProductName: "Coca-Cola",
		Brands:      "Coca-Cola",
		Nutriments: offacts.Nutriments{
			EnergyKcal: defined(42),
			Fat:        defined(0.0),
			Sugars:     defined(10.6),
			Proteins:   defined(0.0),
		},
	}
}

func TestResolveBarcodeCachesRemoteResult(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{product: colaProduct()}
	r := New(NewProductCache(), remote, nil)

	first := r.Resolve(context.Background(), "737628064502", KindBarcode)
	require.NotNil(t, first.Record)
	assert.Equal(t, OutcomeRemote, first.Outcome)
	assert.Equal(t, "Coca-Cola", first.Record.Title)
	assert.EqualValues(t, 1, remote.codeCalls.Load())

	second := r.Resolve(context.Background(), "737628064502", KindBarcode)
	assert.Equal(t, OutcomeCached, second.Outcome)
	assert.Same(t, first.Record, second.Record)
	assert.EqualValues(t, 1, remote.codeCalls.Load(), "cached resolution must not touch the network")
}

func TestResolveUnknownBarcode(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{err: notFoundErr("product not found for barcode: 000")}
	r := New(NewProductCache(), remote, nil)

	res := r.Resolve(context.Background(), "000", KindBarcode)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	require.NotNil(t, res.Record)
	assert.True(t, res.Record.IsEstimate)

	// Placeholder records are not cached, so a later successful lookup
	// is not shadowed.
	assert.Equal(t, 0, r.Cache().Len())
}

func TestResolveTextNoMatchFallsBackToEstimate(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{err: notFoundErr("no products found for: bottled water")}
	r := New(NewProductCache(), remote, nil)

	res := r.Resolve(context.Background(), "Bottled Water, Mineral", KindText)
	assert.Equal(t, OutcomeEstimated, res.Outcome)
	require.NotNil(t, res.Record)
	assert.True(t, res.Record.IsEstimate)
	assert.Equal(t, "Estimated Nutrition", res.Record.Title)

	// Water rule applies to the normalized term.
	energy, ok := res.Record.Field("Energy")
	require.True(t, ok)
	assert.Equal(t, "0 kcal", energy)

	name, _ := res.Record.Field("Name")
	assert.Equal(t, "bottled water", name)

	assert.Equal(t, 0, r.Cache().Len())
}

func TestResolveNetworkErrorFallsBackToEstimate(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{err: errors.Newf("connection refused").
		Category(errors.CategoryNetwork).
		Component("offacts").
		Build()}
	r := New(NewProductCache(), remote, nil)

	res := r.Resolve(context.Background(), "mystery meal", KindText)
	assert.Equal(t, OutcomeEstimated, res.Outcome)
	require.NotNil(t, res.Record)
	assert.True(t, res.Record.IsEstimate)
	energy, _ := res.Record.Field("Energy")
	assert.Equal(t, "100 kcal", energy)
}

func TestResolveEstimateNotShadowingLaterSuccess(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{err: notFoundErr("no products found for: cola")}
	r := New(NewProductCache(), remote, nil)

	first := r.Resolve(context.Background(), "cola", KindText)
	assert.Equal(t, OutcomeEstimated, first.Outcome)

	remote.err = nil
	remote.product = colaProduct()

	second := r.Resolve(context.Background(), "cola", KindText)
	assert.Equal(t, OutcomeRemote, second.Outcome)
	assert.False(t, second.Record.IsEstimate)

	third := r.Resolve(context.Background(), "cola", KindText)
	assert.Equal(t, OutcomeCached, third.Outcome)
}

func TestResolveFallbackTotality(t *testing.T) {
	t.Parallel()

	inputs := []struct {
		identifier string
		kind       Kind
	}{
		{"737628064502", KindBarcode},
		{"0000000000", KindBarcode},
		{"arbitrary text", KindText},
		{"", KindText},
	}

	remote := &fakeRemote{err: notFoundErr("nothing")}
	r := New(NewProductCache(), remote, nil)

	for _, in := range inputs {
		res := r.Resolve(context.Background(), in.identifier, in.kind)
		require.NotNil(t, res.Record, "identifier %q", in.identifier)
		assert.NotEmpty(t, res.Record.Title)
		for _, label := range []string{"Energy", "Fat", "Sugars", "Proteins"} {
			_, ok := res.Record.Field(label)
			assert.True(t, ok, "identifier %q missing %s", in.identifier, label)
		}
	}
}

func TestNormalizeTerm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Bottled Water, Mineral Water", "bottled water"},
		{"  Chips  ", "chips"},
		{"plain", "plain"},
		{"A, B, C", "a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTerm(tt.in))
	}
}

// End-to-end against a mock HTTP API: two scans of the same barcode issue
// exactly one request.
func TestResolveEndToEndSingleRequest(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 1,
			"code": "737628064502",
			"product": {
				"product_name": "Coca-Cola",
				"nutriments": {"energy-kcal": 42, "fat": 0.0, "sugars": 10.6, "proteins": 0.0}
			}
		}`))
	}))
	defer server.Close()

	client, err := offacts.NewClient(offacts.Config{
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		RateLimitMS: 1,
	})
	require.NoError(t, err)

	r := New(NewProductCache(), client, nil)

	first := r.Resolve(context.Background(), "737628064502", KindBarcode)
	second := r.Resolve(context.Background(), "737628064502", KindBarcode)

	assert.Equal(t, OutcomeRemote, first.Outcome)
	assert.Equal(t, OutcomeCached, second.Outcome)
	assert.Equal(t, first.Record, second.Record)
	assert.EqualValues(t, 1, requests.Load())

	energy, _ := first.Record.Field("Energy")
	sugars, _ := first.Record.Field("Sugars")
	assert.Equal(t, "42 kcal", energy)
	assert.Equal(t, "10.6g", sugars)
}
