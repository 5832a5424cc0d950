package sharecart

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	"github.com/angelmondragon/sharecart-backend/internal/sharestats"
	"github.com/angelmondragon/sharecart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

type harness struct {
	svc     Service
	conn    *gorm.DB
	cart    *fakeCart
	session *fakeSession
	stats   sharestats.Store
	logs    *bytes.Buffer
	clock   *time.Time
}

func newHarness(t *testing.T, mutate ...func(*ServiceParams)) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	links, err := sharelinks.NewStore(sharelinks.NewRepository(conn))
	require.NoError(t, err)
	stats, err := sharestats.NewStore(sharestats.NewRepository(conn))
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	h := &harness{
		conn:    conn,
		cart:    newFakeCart(),
		session: newFakeSession(),
		stats:   stats,
		logs:    &bytes.Buffer{},
		clock:   &now,
	}
	params := ServiceParams{
		Links:   links,
		Stats:   stats,
		Cart:    h.cart,
		Catalog: fakeCatalog{products: map[int64]*models.Product{42: {ID: 42, Name: "Tent"}, 7: {ID: 7, Name: "Lamp"}}},
		Session: h.session,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: h.logs}),
		BaseURL: "https://shop.example.com/",
		Now:     func() time.Time { return *h.clock },
	}
	for _, fn := range mutate {
		fn(&params)
	}
	h.svc, err = NewService(params)
	require.NoError(t, err)
	return h
}

func (h *harness) advance(d time.Duration) {
	next := h.clock.Add(d)
	*h.clock = next
}

func (h *harness) visits(t *testing.T) []models.ShareVisit {
	t.Helper()
	var visits []models.ShareVisit
	require.NoError(t, h.conn.Order("id").Find(&visits).Error)
	return visits
}

func TestGenerateLinkAndResolveRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sharer := Caller{SessionID: "sharer"}
	h.cart.lines["sharer"] = []types.CartLine{{ProductID: 42, Quantity: 2}}

	link, err := h.svc.GenerateLink(ctx, sharer, GenerateInput{ReferrerName: "Alice"})
	require.NoError(t, err)
	require.Len(t, link.Key, 36)
	require.Equal(t, "https://shop.example.com/shared-cart/"+link.Key+"/", link.URL)
	require.Equal(t, h.clock.Add(7*24*time.Hour), link.ExpiresAt)
	require.Contains(t, h.logs.String(), `"quantity":2`)

	visitor := Caller{SessionID: "visitor", Address: "198.51.100.4"}
	record, err := h.svc.ResolveSharedCart(ctx, visitor, link.Key)
	require.NoError(t, err)
	require.Equal(t, "Alice", record.ReferrerName)
	require.Equal(t, types.CartSnapshot{{ProductID: 42, Quantity: 2}}, record.CartSnapshot)

	visits := h.visits(t)
	require.Len(t, visits, 1)
	require.Equal(t, record.ID, visits[0].ShareID)
	require.Equal(t, "198.51.100.4", *visits[0].VisitorAddress)

	_, ok, _ := h.session.Get(ctx, "visitor", ReferralSessionKey)
	require.True(t, ok)
}

func TestGenerateLinkSnapshotIsDetachedFromCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 7, Quantity: 1, VariationID: 71, VariationAttributes: map[string]string{"attribute_color": "red"}}}

	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Bo"})
	require.NoError(t, err)

	h.cart.lines["s"][0].VariationAttributes["attribute_color"] = "blue"
	h.cart.lines["s"] = append(h.cart.lines["s"], types.CartLine{ProductID: 42, Quantity: 1})

	record, err := h.svc.ResolveSharedCart(ctx, Caller{SessionID: "v"}, link.Key)
	require.NoError(t, err)
	require.Len(t, record.CartSnapshot, 1)
	require.Equal(t, "red", record.CartSnapshot[0].VariationAttributes["attribute_color"])
}

func TestGenerateLinkValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GenerateLink(ctx, Caller{SessionID: "empty"}, GenerateInput{ReferrerName: "Alice"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))

	h.cart.lines["full"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	_, err = h.svc.GenerateLink(ctx, Caller{SessionID: "full"}, GenerateInput{ReferrerName: "  \t "})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	h.cart.itemsErr = errors.New("cart backend down")
	_, err = h.svc.GenerateLink(ctx, Caller{SessionID: "full"}, GenerateInput{ReferrerName: "Alice"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
}

func TestGenerateLinkKeepsReferrerUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := "user-9"
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}

	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s", UserID: &userID}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	var stored models.ShareLink
	require.NoError(t, h.conn.Where("share_key = ?", link.Key).Take(&stored).Error)
	require.NotNil(t, stored.ReferrerUserID)
	require.Equal(t, userID, *stored.ReferrerUserID)
}

func TestResolveExpiredMatchesUnknown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	h.advance(7*24*time.Hour + time.Second)

	_, expiredErr := h.svc.ResolveSharedCart(ctx, Caller{SessionID: "v"}, link.Key)
	_, unknownErr := h.svc.ResolveSharedCart(ctx, Caller{SessionID: "v"}, "99999999-9999-4999-8999-999999999999")
	require.True(t, sharelinks.IsNotFound(expiredErr))
	require.Equal(t, unknownErr.Error(), expiredErr.Error())
	require.Empty(t, h.visits(t))
}

func TestResolveSurvivesVisitFailure(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) {
		p.Stats = flakyStats{Store: p.Stats}
	})
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	record, err := h.svc.ResolveSharedCart(ctx, Caller{SessionID: "v"}, link.Key)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Contains(t, h.logs.String(), "failed to record share visit")
}

func TestViewSharedCartSkipsMissingProducts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}, {ProductID: 555, Quantity: 3}, {ProductID: 7, Quantity: 2}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	view, err := h.svc.ViewSharedCart(ctx, Caller{SessionID: "v"}, link.Key)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.Equal(t, "Tent", view.Items[0].Product.Name)
	require.Equal(t, "Lamp", view.Items[1].Product.Name)
	require.Len(t, view.Link.CartSnapshot, 3)
}

func TestAddAllItemsCountsRefusals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}, {ProductID: 7, Quantity: 2}, {ProductID: 8, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	h.cart.refuse[7] = true
	h.cart.fail[8] = errors.New("boom")
	h.cart.lines["v"] = []types.CartLine{{ProductID: 1, Quantity: 1}}

	res, err := h.svc.AddAllItems(ctx, Caller{SessionID: "v"}, AddAllInput{Key: link.Key})
	require.NoError(t, err)
	require.Equal(t, 1, res.AddedCount)
	require.Equal(t, 3, res.TotalCount)
	require.Equal(t, "https://shop.example.com/cart/", res.CartURL)
	require.Len(t, h.cart.lines["v"], 2)
	require.Zero(t, h.cart.emptied)
	require.Contains(t, h.logs.String(), "some shared items could not be added")

	_, ok, _ := h.session.Get(ctx, "v", ReferralSessionKey)
	require.True(t, ok)
	require.Empty(t, h.visits(t))
}

func TestAddAllItemsReplaceCartAndNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	h.cart.lines["v"] = []types.CartLine{{ProductID: 1, Quantity: 1}}
	res, err := h.svc.AddAllItems(ctx, Caller{SessionID: "v"}, AddAllInput{Key: link.Key, ReplaceCart: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.AddedCount)
	require.Equal(t, []types.CartLine{{ProductID: 42, Quantity: 1}}, h.cart.lines["v"])

	_, err = h.svc.AddAllItems(ctx, Caller{SessionID: "v"}, AddAllInput{Key: "garbage"})
	require.True(t, sharelinks.IsNotFound(err))
}

func TestOpenSharedCartRecordsVisitAndReplacesCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 2}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	h.cart.lines["v"] = []types.CartLine{{ProductID: 3, Quantity: 1}}
	res, err := h.svc.OpenSharedCart(ctx, Caller{SessionID: "v"}, link.Key)
	require.NoError(t, err)
	require.Equal(t, 1, res.AddedCount)
	require.Equal(t, 1, h.cart.emptied)
	require.Len(t, h.visits(t), 1)
}

func TestAddSingleItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 2}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Al"})
	require.NoError(t, err)

	res, err := h.svc.AddSingleItem(ctx, Caller{SessionID: "v"}, AddSingleInput{ShareKey: &link.Key, Item: types.CartLine{ProductID: 42}})
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com/cart/", res.CartURL)
	require.Equal(t, []types.CartLine{{ProductID: 42, Quantity: 1}}, h.cart.lines["v"])
	_, ok, _ := h.session.Get(ctx, "v", ReferralSessionKey)
	require.True(t, ok)

	h.cart.refuse[7] = true
	_, err = h.svc.AddSingleItem(ctx, Caller{SessionID: "v"}, AddSingleInput{Item: types.CartLine{ProductID: 7, Quantity: 1}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCartAdd))

	h.cart.fail[8] = errors.New("storefront offline")
	_, err = h.svc.AddSingleItem(ctx, Caller{SessionID: "v"}, AddSingleInput{Item: types.CartLine{ProductID: 8, Quantity: 1}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCartAdd))
	require.ErrorContains(t, errors.Unwrap(err), "storefront offline")

	_, err = h.svc.AddSingleItem(ctx, Caller{SessionID: "v"}, AddSingleInput{Item: types.CartLine{Quantity: 1}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	stale := "77777777-7777-4777-8777-777777777777"
	_, err = h.svc.AddSingleItem(ctx, Caller{SessionID: "other"}, AddSingleInput{ShareKey: &stale, Item: types.CartLine{ProductID: 42, Quantity: 1}})
	require.NoError(t, err)
	_, ok, _ = h.session.Get(ctx, "other", ReferralSessionKey)
	require.False(t, ok)
}

func TestOnOrderPlacedAttributesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Alice"})
	require.NoError(t, err)

	visitor := Caller{SessionID: "v"}
	_, err = h.svc.ResolveSharedCart(ctx, visitor, link.Key)
	require.NoError(t, err)

	res, err := h.svc.OnOrderPlaced(ctx, visitor, 1234)
	require.NoError(t, err)
	require.True(t, res.Attributed)
	require.True(t, res.Converted)

	res, err = h.svc.OnOrderPlaced(ctx, visitor, 1234)
	require.NoError(t, err)
	require.False(t, res.Attributed)
	require.False(t, res.Converted)

	visits := h.visits(t)
	require.Len(t, visits, 1)
	require.EqualValues(t, 1234, *visits[0].OrderID)

	var referral models.OrderReferral
	require.NoError(t, h.conn.Where("order_id = ?", 1234).Take(&referral).Error)
	require.Equal(t, "Alice", referral.ReferrerName)
	require.Equal(t, link.Key, referral.ShareKey)

	rows, err := h.stats.AggregateByReferrer(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 1, rows[0].TotalConversions)
}

func TestOnOrderPlacedWithoutVisitStillClearsReferral(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cart.lines["s"] = []types.CartLine{{ProductID: 42, Quantity: 1}}
	link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "s"}, GenerateInput{ReferrerName: "Alice"})
	require.NoError(t, err)

	visitor := Caller{SessionID: "v"}
	_, err = h.svc.AddAllItems(ctx, visitor, AddAllInput{Key: link.Key})
	require.NoError(t, err)

	res, err := h.svc.OnOrderPlaced(ctx, visitor, 55)
	require.NoError(t, err)
	require.True(t, res.Attributed)
	require.False(t, res.Converted)

	_, ok, _ := h.session.Get(ctx, "v", ReferralSessionKey)
	require.False(t, ok)
}

func TestOnOrderPlacedDiscardsCorruptReferral(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.session.Set(ctx, "v", ReferralSessionKey, "{not json"))

	res, err := h.svc.OnOrderPlaced(ctx, Caller{SessionID: "v"}, 10)
	require.NoError(t, err)
	require.False(t, res.Attributed)
	_, ok, _ := h.session.Get(ctx, "v", ReferralSessionKey)
	require.False(t, ok)

	_, err = h.svc.OnOrderPlaced(ctx, Caller{SessionID: "v"}, 0)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestPropertyGenerateResolveRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve returns the generated snapshot and name", prop.ForAll(
		func(ids []int64, name string) bool {
			lines := make([]types.CartLine, 0, len(ids))
			for i, id := range ids {
				lines = append(lines, types.CartLine{ProductID: id, Quantity: i + 1})
			}
			h.cart.lines["p"] = lines

			link, err := h.svc.GenerateLink(ctx, Caller{SessionID: "p"}, GenerateInput{ReferrerName: name})
			if err != nil {
				t.Logf("generate: %v", err)
				return false
			}
			record, err := h.svc.ResolveSharedCart(ctx, Caller{SessionID: "q"}, link.Key)
			if err != nil {
				t.Logf("resolve: %v", err)
				return false
			}
			return record.ReferrerName == strings.TrimSpace(name) &&
				reflect.DeepEqual([]types.CartLine(record.CartSnapshot), lines)
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)).SuchThat(func(v []int64) bool { return len(v) > 0 }),
		gen.Identifier().SuchThat(func(v string) bool { return len(v) <= sharelinks.MaxReferrerNameLength }),
	))

	properties.TestingRun(t)
}
