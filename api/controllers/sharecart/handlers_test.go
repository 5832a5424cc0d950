package sharecart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	sharecartdto "github.com/angelmondragon/sharecart-backend/api/controllers/sharecart/dto"
	"github.com/angelmondragon/sharecart-backend/api/middleware"
	sharecartsvc "github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

const liveKey = "3f0c6a8e-1b2c-4d5e-8f90-0123456789ab"

type stubService struct {
	err        error
	lastCaller sharecartsvc.Caller
	lastInput  any
	lastKey    string
}

func (s *stubService) GenerateLink(_ context.Context, caller sharecartsvc.Caller, input sharecartsvc.GenerateInput) (*sharecartsvc.GeneratedLink, error) {
	s.lastCaller, s.lastInput = caller, input
	if s.err != nil {
		return nil, s.err
	}
	return &sharecartsvc.GeneratedLink{
		URL:       "https://shop.example.com/shared-cart/" + liveKey + "/",
		Key:       liveKey,
		ExpiresAt: time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubService) ResolveSharedCart(_ context.Context, caller sharecartsvc.Caller, key string) (*models.ShareLink, error) {
	s.lastCaller, s.lastKey = caller, key
	return nil, s.err
}

func (s *stubService) ViewSharedCart(_ context.Context, caller sharecartsvc.Caller, key string) (*sharecartsvc.SharedCartView, error) {
	s.lastCaller, s.lastKey = caller, key
	if s.err != nil {
		return nil, s.err
	}
	note := "for the trip"
	return &sharecartsvc.SharedCartView{
		Link: &models.ShareLink{ID: 1, ShareKey: key, ReferrerName: "Alice", Note: &note},
		Items: []sharecartsvc.SharedCartItem{{
			Line:    types.CartLine{ProductID: 42, Quantity: 2, VariationID: 5, VariationAttributes: map[string]string{"size": "L"}},
			Product: &models.Product{ID: 42, Name: "Tent", PriceCents: 12900, IsActive: true},
		}},
	}, nil
}

func (s *stubService) OpenSharedCart(_ context.Context, caller sharecartsvc.Caller, key string) (*sharecartsvc.AddAllResult, error) {
	s.lastCaller, s.lastKey = caller, key
	if s.err != nil {
		return nil, s.err
	}
	return &sharecartsvc.AddAllResult{AddedCount: 1, TotalCount: 1, CartURL: "https://shop.example.com/cart/"}, nil
}

func (s *stubService) AddAllItems(_ context.Context, caller sharecartsvc.Caller, input sharecartsvc.AddAllInput) (*sharecartsvc.AddAllResult, error) {
	s.lastCaller, s.lastInput = caller, input
	if s.err != nil {
		return nil, s.err
	}
	return &sharecartsvc.AddAllResult{AddedCount: 2, TotalCount: 3, CartURL: "https://shop.example.com/cart/"}, nil
}

func (s *stubService) AddSingleItem(_ context.Context, caller sharecartsvc.Caller, input sharecartsvc.AddSingleInput) (*sharecartsvc.AddSingleResult, error) {
	s.lastCaller, s.lastInput = caller, input
	if s.err != nil {
		return nil, s.err
	}
	return &sharecartsvc.AddSingleResult{CartURL: "https://shop.example.com/cart/"}, nil
}

func (s *stubService) OnOrderPlaced(_ context.Context, caller sharecartsvc.Caller, orderID int64) (*sharecartsvc.OrderPlacedResult, error) {
	s.lastCaller, s.lastInput = caller, orderID
	if s.err != nil {
		return nil, s.err
	}
	return &sharecartsvc.OrderPlacedResult{Attributed: true, Converted: true, ShareID: 1}, nil
}

func serve(t *testing.T, method, pattern, target string, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithSessionID(req.Context(), "sess-1")
	ctx = middleware.WithClientIP(ctx, "203.0.113.4")
	req = req.WithContext(ctx)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope")
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestGenerateLinkCreated(t *testing.T) {
	svc := &stubService{}
	resp := serve(t, http.MethodPost, "/links", "/links", GenerateLink(svc, nil), `{"referrer_name":"Alice","note":"  "}`)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var out sharecartdto.GeneratedLink
	decodeData(t, resp, &out)
	if out.Key != liveKey || !strings.HasSuffix(out.URL, "/shared-cart/"+liveKey+"/") {
		t.Fatalf("unexpected link %+v", out)
	}
	input := svc.lastInput.(sharecartsvc.GenerateInput)
	if input.ReferrerName != "Alice" || input.Note != nil {
		t.Fatalf("unexpected input %+v", input)
	}
	if svc.lastCaller.SessionID != "sess-1" || svc.lastCaller.Address != "203.0.113.4" {
		t.Fatalf("unexpected caller %+v", svc.lastCaller)
	}
}

func TestGenerateLinkRequiresName(t *testing.T) {
	resp := serve(t, http.MethodPost, "/links", "/links", GenerateLink(&stubService{}, nil), `{"note":"hi"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGenerateLinkEmptyCart(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")}
	resp := serve(t, http.MethodPost, "/links", "/links", GenerateLink(svc, nil), `{"referrer_name":"Alice"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestViewLinkMapsItems(t *testing.T) {
	svc := &stubService{}
	resp := serve(t, http.MethodGet, "/links/{key}", "/links/"+liveKey, ViewLink(svc, nil), "")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out sharecartdto.SharedCart
	decodeData(t, resp, &out)
	if out.Link.ShareKey != liveKey || out.Link.ReferrerName != "Alice" || out.Link.Note == nil {
		t.Fatalf("unexpected link %+v", out.Link)
	}
	if len(out.Items) != 1 || out.Items[0].Name != "Tent" || out.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", out.Items)
	}
	if out.Items[0].VariationAttributes["size"] != "L" || !out.Items[0].Available {
		t.Fatalf("unexpected item detail %+v", out.Items[0])
	}
	if svc.lastKey != liveKey {
		t.Fatalf("expected key from path, got %q", svc.lastKey)
	}
}

func TestViewLinkNotFound(t *testing.T) {
	svc := &stubService{err: sharelinks.NotFound()}
	resp := serve(t, http.MethodGet, "/links/{key}", "/links/nope", ViewLink(svc, nil), "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), sharelinks.NotFoundMessage) {
		t.Fatalf("expected not found message, got %s", resp.Body.String())
	}
}

func TestAddAllPassesReplaceFlag(t *testing.T) {
	svc := &stubService{}
	resp := serve(t, http.MethodPost, "/links/{key}/add-all", "/links/"+liveKey+"/add-all", AddAll(svc, nil), `{"replace_cart":true}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out sharecartdto.AddAllResult
	decodeData(t, resp, &out)
	if out.AddedCount != 2 || out.TotalCount != 3 {
		t.Fatalf("unexpected result %+v", out)
	}
	input := svc.lastInput.(sharecartsvc.AddAllInput)
	if !input.ReplaceCart || input.Key != liveKey {
		t.Fatalf("unexpected input %+v", input)
	}
}

func TestAddItemMapsPayload(t *testing.T) {
	svc := &stubService{}
	body := `{"share_key":"` + liveKey + `","product_id":42,"quantity":3,"variation_id":5,"variation":{"color":"red"}}`
	resp := serve(t, http.MethodPost, "/items", "/items", AddItem(svc, nil), body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	input := svc.lastInput.(sharecartsvc.AddSingleInput)
	if input.ShareKey == nil || *input.ShareKey != liveKey {
		t.Fatalf("expected share key to pass through")
	}
	if input.Item.ProductID != 42 || input.Item.Quantity != 3 || input.Item.VariationAttributes["color"] != "red" {
		t.Fatalf("unexpected item %+v", input.Item)
	}
}

func TestAddItemRefused(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeCartAdd, "this item is not available")}
	resp := serve(t, http.MethodPost, "/items", "/items", AddItem(svc, nil), `{"product_id":42}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestOrderPlaced(t *testing.T) {
	svc := &stubService{}
	resp := serve(t, http.MethodPost, "/orders", "/orders", OrderPlaced(svc, nil), `{"order_id":9001}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out sharecartdto.OrderPlacedResult
	decodeData(t, resp, &out)
	if !out.Attributed || !out.Converted || out.ShareID != 1 {
		t.Fatalf("unexpected result %+v", out)
	}
	if svc.lastInput.(int64) != 9001 {
		t.Fatalf("unexpected order id %v", svc.lastInput)
	}

	resp = serve(t, http.MethodPost, "/orders", "/orders", OrderPlaced(svc, nil), `{"order_id":0}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing order id, got %d", resp.Code)
	}
}

func TestLandingRedirects(t *testing.T) {
	svc := &stubService{}
	resp := serve(t, http.MethodGet, "/shared-cart/{key}/", "/shared-cart/"+liveKey+"/", Landing(svc, "https://shop.example.com/shop/", nil), "")
	if resp.Code != http.StatusFound || resp.Header().Get("Location") != "https://shop.example.com/cart/" {
		t.Fatalf("expected redirect to cart, got %d %q", resp.Code, resp.Header().Get("Location"))
	}

	svc.err = sharelinks.NotFound()
	resp = serve(t, http.MethodGet, "/shared-cart/{key}/", "/shared-cart/"+liveKey+"/", Landing(svc, "https://shop.example.com/shop/", nil), "")
	if resp.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "https://shop.example.com/shop/?sharecart=expired" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestHandlersWithoutService(t *testing.T) {
	resp := serve(t, http.MethodPost, "/orders", "/orders", OrderPlaced(nil, nil), `{"order_id":1}`)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
