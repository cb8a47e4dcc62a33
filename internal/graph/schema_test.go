package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/memstore"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	schema graphql.Schema
	tokens *auth.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := auth.NewIssuer("graph-test", time.Hour)
	require.NoError(t, err)
	schema, err := NewSchema(&crm.Service{Store: memstore.New(), Tokens: tokens})
	require.NoError(t, err)
	return &harness{schema: schema, tokens: tokens}
}

// exec runs query and decodes its data into out. Errors are returned as
// decoded from the JSON response, the way a client would see them.
func (h *harness) exec(ctx context.Context, query string, vars map[string]any, out any) []gqlError {
	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
	b, _ := json.Marshal(res)
	var body struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	_ = json.Unmarshal(b, &body)
	if out != nil && len(body.Data) > 0 {
		_ = json.Unmarshal(body.Data, out)
	}
	return body.Errors
}

type gqlError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions"`
}

func (e gqlError) code() string {
	s, _ := e.Extensions["code"].(string)
	return s
}

// login registers a seller through the API and returns an authenticated context.
func (h *harness) login(t *testing.T, email string) context.Context {
	t.Helper()
	errs := h.exec(context.Background(), `mutation($in: UserInput!) { registerUser(input: $in) { id email } }`,
		map[string]any{"in": map[string]any{"name": "Ana", "surname": "Lopez", "email": email, "password": "secret123"}}, nil)
	require.Empty(t, errs)

	var data struct {
		Authenticate struct{ Token string } `json:"authenticate"`
	}
	errs = h.exec(context.Background(), `mutation($in: AuthInput!) { authenticate(input: $in) { token } }`,
		map[string]any{"in": map[string]any{"email": email, "password": "secret123"}}, &data)
	require.Empty(t, errs)

	id, err := h.tokens.Verify(data.Authenticate.Token)
	require.NoError(t, err)
	return auth.WithIdentity(context.Background(), id)
}

func (h *harness) createProduct(t *testing.T, name string, stock int, price float64) string {
	t.Helper()
	var data struct {
		CreateProduct struct{ ID string } `json:"createProduct"`
	}
	errs := h.exec(context.Background(), `mutation($in: ProductInput!) { createProduct(input: $in) { id } }`,
		map[string]any{"in": map[string]any{"name": name, "stock": stock, "price": price}}, &data)
	require.Empty(t, errs)
	return data.CreateProduct.ID
}

func (h *harness) createClient(t *testing.T, ctx context.Context, email string) string {
	t.Helper()
	var data struct {
		CreateClient struct{ ID string } `json:"createClient"`
	}
	errs := h.exec(ctx, `mutation($in: ClientInput!) { createClient(input: $in) { id } }`,
		map[string]any{"in": map[string]any{"name": "Carla", "surname": "Diaz", "company": "ACME", "email": email}}, &data)
	require.Empty(t, errs)
	return data.CreateClient.ID
}

func TestRegisterUser_DoesNotExposePassword(t *testing.T) {
	h := newHarness(t)
	errs := h.exec(context.Background(), `mutation { registerUser(input: {name: "a", surname: "b", email: "a@b.c", password: "x"}) { password } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `Cannot query field "password"`)
}

func TestErrorsCarryCode(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ana@example.com")

	errs := h.exec(context.Background(), `mutation { registerUser(input: {name: "a", surname: "b", email: "ana@example.com", password: "x"}) { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindDuplicateUser), errs[0].code())

	errs = h.exec(context.Background(), `mutation { authenticate(input: {email: "ana@example.com", password: "wrong"}) { token } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindInvalidCredentials), errs[0].code())

	errs = h.exec(context.Background(), `{ obtainUser(token: "bogus") { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindInvalidToken), errs[0].code())

	errs = h.exec(context.Background(), `{ clientsForSeller { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindUnauthenticated), errs[0].code())
}

func TestObtainUser(t *testing.T) {
	h := newHarness(t)
	ctx := h.login(t, "ana@example.com")
	me, _ := auth.IdentityFrom(ctx)
	token, err := h.tokens.Issue(me)
	require.NoError(t, err)

	var data struct {
		ObtainUser struct {
			ID    string
			Email string
		} `json:"obtainUser"`
	}
	errs := h.exec(context.Background(), `query($t: String!) { obtainUser(token: $t) { id email } }`, map[string]any{"t": token}, &data)
	require.Empty(t, errs)
	assert.Equal(t, me.ID, data.ObtainUser.ID)
	assert.Equal(t, "ana@example.com", data.ObtainUser.Email)
}

func TestProductPriceIsDecimal(t *testing.T) {
	h := newHarness(t)
	id := h.createProduct(t, "Laptop", 3, 1299.99)

	var data struct {
		Product struct {
			Name  string
			Stock int
			Price float64
		} `json:"product"`
	}
	errs := h.exec(context.Background(), `query($id: ID!) { product(id: $id) { name stock price } }`, map[string]any{"id": id}, &data)
	require.Empty(t, errs)
	assert.Equal(t, "Laptop", data.Product.Name)
	assert.Equal(t, 3, data.Product.Stock)
	assert.InDelta(t, 1299.99, data.Product.Price, 1e-9)

	errs = h.exec(context.Background(), `{ product(id: "missing") { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindProductNotFound), errs[0].code())
}

func TestCreateProduct_RejectsUnrepresentablePrice(t *testing.T) {
	h := newHarness(t)
	for _, price := range []float64{1e17, 1e300, -1} {
		errs := h.exec(context.Background(), `mutation($in: ProductInput!) { createProduct(input: $in) { id } }`,
			map[string]any{"in": map[string]any{"name": "Too much", "stock": 1, "price": price}}, nil)
		require.Len(t, errs, 1, "price %v", price)
		assert.Equal(t, string(crm.KindInvalidInput), errs[0].code())
	}

	var data struct {
		Products []struct{ ID string } `json:"products"`
	}
	errs := h.exec(context.Background(), `{ products { id } }`, nil, &data)
	require.Empty(t, errs)
	assert.Empty(t, data.Products)
}

func TestOrderLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := h.login(t, "ana@example.com")
	me, _ := auth.IdentityFrom(ctx)
	clientID := h.createClient(t, ctx, "carla@acme.com")
	productID := h.createProduct(t, "Phone", 5, 250.5)

	type order struct {
		ID     string
		Total  float64
		Seller string
		Status string
		Items  []struct {
			ID       string
			Quantity int
			Price    float64
		}
	}
	var placed struct {
		PlaceOrder order `json:"placeOrder"`
	}
	errs := h.exec(ctx, `mutation($in: OrderInput!) { placeOrder(input: $in) { id total seller status items { id quantity price } } }`,
		map[string]any{"in": map[string]any{
			"client": clientID,
			"items":  []any{map[string]any{"id": productID, "quantity": 2}},
		}}, &placed)
	require.Empty(t, errs)
	o := placed.PlaceOrder
	assert.Equal(t, me.ID, o.Seller)
	assert.Equal(t, "PENDING", o.Status)
	assert.InDelta(t, 501.0, o.Total, 1e-9)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	errs = h.exec(ctx, `mutation($in: OrderInput!) { placeOrder(input: $in) { id } }`,
		map[string]any{"in": map[string]any{
			"client": clientID,
			"items":  []any{map[string]any{"id": productID, "quantity": 4}},
		}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindInsufficientStock), errs[0].code())
	assert.Contains(t, errs[0].Message, "available 3")

	var updated struct {
		UpdateOrder order `json:"updateOrder"`
	}
	errs = h.exec(ctx, `mutation($id: ID!) { updateOrder(id: $id, input: {status: COMPLETED}) { status } }`,
		map[string]any{"id": o.ID}, &updated)
	require.Empty(t, errs)
	assert.Equal(t, "COMPLETED", updated.UpdateOrder.Status)

	var byStatus struct {
		OrdersByStatus []order `json:"ordersByStatus"`
	}
	errs = h.exec(ctx, `{ ordersByStatus(status: COMPLETED) { id } }`, nil, &byStatus)
	require.Empty(t, errs)
	require.Len(t, byStatus.OrdersByStatus, 1)
	assert.Equal(t, o.ID, byStatus.OrdersByStatus[0].ID)

	var top struct {
		TopClients []struct {
			Client struct{ ID string }
			Total  float64
		} `json:"topClients"`
	}
	errs = h.exec(ctx, `{ topClients { client { id } total } }`, nil, &top)
	require.Empty(t, errs)
	require.Len(t, top.TopClients, 1)
	assert.Equal(t, clientID, top.TopClients[0].Client.ID)
	assert.InDelta(t, 501.0, top.TopClients[0].Total, 1e-9)

	var deleted struct {
		DeleteOrder string `json:"deleteOrder"`
	}
	errs = h.exec(ctx, `mutation($id: ID!) { deleteOrder(id: $id) }`, map[string]any{"id": o.ID}, &deleted)
	require.Empty(t, errs)
	assert.Equal(t, "order deleted", deleted.DeleteOrder)
}

func TestForeignClientIsDenied(t *testing.T) {
	h := newHarness(t)
	ana := h.login(t, "ana@example.com")
	bob := h.login(t, "bob@example.com")
	clientID := h.createClient(t, ana, "carla@acme.com")

	errs := h.exec(bob, `query($id: ID!) { client(id: $id) { id } }`, map[string]any{"id": clientID}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindPermissionDenied), errs[0].code())

	errs = h.exec(bob, `mutation($id: ID!) { deleteClient(id: $id) }`, map[string]any{"id": clientID}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, string(crm.KindPermissionDenied), errs[0].code())
}

func TestInternalErrorsAreMasked(t *testing.T) {
	err := apiError(&crm.Error{Kind: crm.KindInternal, Message: "internal error"})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, crm.KindInternal, ge.Code)
	assert.Equal(t, "internal error", ge.Message)

	err = apiError(context.DeadlineExceeded)
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "internal error", ge.Message)
}
