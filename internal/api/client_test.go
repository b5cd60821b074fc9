package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thorwig/sovy-merchant/internal/api"
	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/session"
)

func setupClient(t *testing.T, handler http.Handler) (*api.Client, *session.Manager) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess, err := session.NewManager(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewClient(srv.URL, 5*time.Second, sess, log), sess
}

func TestLoginSendsMerchantRole(t *testing.T) {
	var got map[string]string
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(models.Session{
			Token:    "tok-1",
			User:     &models.User{ID: "u1"},
			Merchant: &models.MerchantProfile{ID: "m1"},
		})
	}))

	sess, err := client.Login(context.Background(), "owner@corner.cafe", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "MERCHANT", got["role"])
	assert.Equal(t, "owner@corner.cafe", got["email"])
}

func TestBearerTokenAttached(t *testing.T) {
	var auth, reqID string
	client, sess := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Request-Id")
		json.NewEncoder(w).Encode(models.MerchantStats{TotalOrders: 7})
	}))
	require.NoError(t, sess.Install(models.Session{Token: "tok-xyz"}))

	stats, err := client.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalOrders)
	assert.Equal(t, "Bearer tok-xyz", auth)
	assert.NotEmpty(t, reqID)
}

func TestUnauthorizedWipesSessionFromAnyEndpoint(t *testing.T) {
	client, sess := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	require.NoError(t, sess.Install(models.Session{Token: "tok-old"}))

	var redirected int
	client.OnUnauthorized(func() { redirected++ })

	_, err := client.GetProfile(context.Background())
	assert.True(t, api.IsUnauthorized(err))
	assert.Nil(t, sess.Current(), "session must be emptied")
	assert.Equal(t, 1, redirected)

	// A second 401 fires the handler again, one call per response.
	_, err = client.GetStats(context.Background())
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 2, redirected)
}

func TestListOrdersQueryParams(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "PENDING", q.Get("status"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		json.NewEncoder(w).Encode(models.OrderPage{
			Orders: []models.Order{{ID: "o1", Status: models.OrderStatusPending}},
			Total:  25,
		})
	}))

	page, err := client.ListOrders(context.Background(), api.OrderQuery{
		Status: models.OrderStatusPending, Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "o1", page.Orders[0].ID)
}

func TestCreateFoodItemMultipart(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Day-old croissants", r.FormValue("name"))
		assert.Equal(t, "3.5", r.FormValue("price"))
		assert.Equal(t, "7", r.FormValue("originalPrice"))
		assert.Equal(t, "12", r.FormValue("quantity"))
		assert.NotEmpty(t, r.FormValue("expiryDate"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "croissant.jpg", hdr.Filename)
		assert.Equal(t, "fake-bytes", string(data))

		json.NewEncoder(w).Encode(models.FoodItem{ID: "f1", Name: "Day-old croissants"})
	}))

	item, err := client.CreateFoodItem(context.Background(), api.FoodItemForm{
		Name:          "Day-old croissants",
		Description:   "Still great toasted",
		Price:         3.5,
		OriginalPrice: 7,
		Quantity:      12,
		ExpiryDate:    time.Now().Add(24 * time.Hour),
		Image:         strings.NewReader("fake-bytes"),
		ImageName:     "croissant.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", item.ID)
}

func TestUpdateOrderStatus(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/orders/abc123/status", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CONFIRMED", body["status"])
		json.NewEncoder(w).Encode(models.Order{ID: "abc123", Status: models.OrderStatusConfirmed})
	}))

	o, err := client.UpdateOrderStatus(context.Background(), "abc123", models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, o.Status)
}

func TestConfirmOrderPaymentFixedValue(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/abc123/payment", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAID", body["paymentStatus"])
		json.NewEncoder(w).Encode(models.Order{ID: "abc123", PaymentStatus: models.PaymentStatusPaid})
	}))

	o, err := client.ConfirmOrderPayment(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "quantity exhausted"})
	}))

	err := client.DeleteFoodItem(context.Background(), "f9")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "quantity exhausted", apiErr.Message)
}
