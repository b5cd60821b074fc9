// Package api is the typed client for the Sovy marketplace REST API. Every
// method does one request with no retries; errors either wrap the transport
// failure or carry the backend's status and message as an *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/session"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 API error.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	hc      *http.Client
	sess    *session.Manager
	log     *slog.Logger

	// onUnauthorized runs after a 401 wiped the session, once per response.
	// The console uses it to drop back to the login prompt.
	onUnauthorized func()
}

func NewClient(baseURL string, timeout time.Duration, sess *session.Manager, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		sess:    sess,
		log:     log,
	}
}

// OnUnauthorized registers the session-loss handler.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Login authenticates the merchant. The caller decides what to do with the
// returned session (normally install it into the session manager).
func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var out models.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/login",
		loginRequest{Email: email, Password: password, Role: "MERCHANT"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfile(ctx context.Context) (*models.MerchantProfile, error) {
	var out models.MerchantProfile
	if err := c.doJSON(ctx, http.MethodGet, "/merchants/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p models.MerchantProfile) (*models.MerchantProfile, error) {
	var out models.MerchantProfile
	if err := c.doJSON(ctx, http.MethodPut, "/merchants/profile", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStats(ctx context.Context) (*models.MerchantStats, error) {
	var out models.MerchantStats
	if err := c.doJSON(ctx, http.MethodGet, "/merchants/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFoodItems(ctx context.Context) ([]models.FoodItem, error) {
	var out []models.FoodItem
	if err := c.doJSON(ctx, http.MethodGet, "/food-items", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FoodItemForm is the multipart payload for creating or updating a listing.
// Image is optional; when nil only the text fields are sent.
type FoodItemForm struct {
	Name          string
	Description   string
	Price         float64
	OriginalPrice float64
	Quantity      int
	ExpiryDate    time.Time
	Image         io.Reader
	ImageName     string
}

func (c *Client) CreateFoodItem(ctx context.Context, form FoodItemForm) (*models.FoodItem, error) {
	var out models.FoodItem
	if err := c.doMultipart(ctx, http.MethodPost, "/food-items", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateFoodItem(ctx context.Context, id string, form FoodItemForm) (*models.FoodItem, error) {
	var out models.FoodItem
	if err := c.doMultipart(ctx, http.MethodPut, "/food-items/"+url.PathEscape(id), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFoodItem(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/food-items/"+url.PathEscape(id), nil, nil)
}

// OrderQuery filters the order listing. Zero values mean "not set" and are
// left out of the request.
type OrderQuery struct {
	Status models.OrderStatus
	Page   int
	Limit  int
}

func (q OrderQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *Client) ListOrders(ctx context.Context, q OrderQuery) (*models.OrderPage, error) {
	path := "/orders"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var out models.OrderPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var out models.Order
	body := map[string]models.OrderStatus{"status": status}
	err := c.doJSON(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmOrderPayment marks an order paid. PAID is the only value the
// endpoint accepts, so it is not a parameter.
func (c *Client) ConfirmOrderPayment(ctx context.Context, id string) (*models.Order, error) {
	var out models.Order
	body := map[string]models.PaymentStatus{"paymentStatus": models.PaymentStatusPaid}
	err := c.doJSON(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/payment", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, form FoodItemForm, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":          form.Name,
		"description":   form.Description,
		"price":         strconv.FormatFloat(form.Price, 'f', -1, 64),
		"originalPrice": strconv.FormatFloat(form.OriginalPrice, 'f', -1, 64),
		"quantity":      strconv.Itoa(form.Quantity),
		"expiryDate":    form.ExpiryDate.Format(time.RFC3339),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	if form.Image != nil {
		name := form.ImageName
		if name == "" {
			name = "image"
		}
		fw, err := w.CreateFormFile("image", name)
		if err != nil {
			return fmt.Errorf("create image part: %w", err)
		}
		if _, err := io.Copy(fw, form.Image); err != nil {
			return fmt.Errorf("copy image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.do(ctx, method, path, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(method, path)
		return &Error{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}

// handleUnauthorized treats any 401 as loss of the whole session: persisted
// state is wiped and the registered handler sends the user back to login.
func (c *Client) handleUnauthorized(method, path string) {
	c.log.Warn("session rejected by backend", "method", method, "path", path)
	if err := c.sess.Clear(); err != nil {
		c.log.Error("clearing session failed", "err", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func readMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil || body.Message == "" {
		return "request failed"
	}
	return body.Message
}
