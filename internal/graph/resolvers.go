package graph

import (
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/graphql-go/graphql"
)

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func integer(m map[string]interface{}, key string) int {
	n, _ := m[key].(int)
	return n
}

func amount(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func inputArg(p graphql.ResolveParams) map[string]interface{} {
	in, _ := p.Args["input"].(map[string]interface{})
	return in
}

// lineItems decodes a list of OrderItemInput. A missing list yields nil,
// an explicit empty list a non-nil empty slice.
func lineItems(v interface{}) []crm.LineItem {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]crm.LineItem, 0, len(raw))
	for _, x := range raw {
		m, _ := x.(map[string]interface{})
		out = append(out, crm.LineItem{ProductID: str(m, "id"), Qty: integer(m, "quantity")})
	}
	return out
}

// ---- queries ----

func (r *resolver) obtainUser(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.svc.ObtainUser(p.Context, str(p.Args, "token"))
	if err != nil {
		return nil, apiError(err)
	}
	return presentIdentity(id), nil
}

func (r *resolver) products(p graphql.ResolveParams) (interface{}, error) {
	ps, err := r.svc.Products(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentProducts(ps), nil
}

func (r *resolver) product(p graphql.ResolveParams) (interface{}, error) {
	prod, err := r.svc.Product(p.Context, str(p.Args, "id"))
	if err != nil {
		return nil, apiError(err)
	}
	return presentProduct(prod), nil
}

func (r *resolver) searchProducts(p graphql.ResolveParams) (interface{}, error) {
	ps, err := r.svc.SearchProducts(p.Context, str(p.Args, "text"))
	if err != nil {
		return nil, apiError(err)
	}
	return presentProducts(ps), nil
}

func (r *resolver) lowStockProducts(p graphql.ResolveParams) (interface{}, error) {
	ps, err := r.svc.LowStockProducts(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentProducts(ps), nil
}

func (r *resolver) clients(p graphql.ResolveParams) (interface{}, error) {
	cs, err := r.svc.Clients(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentClients(cs), nil
}

func (r *resolver) clientsForSeller(p graphql.ResolveParams) (interface{}, error) {
	cs, err := r.svc.ClientsForSeller(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentClients(cs), nil
}

func (r *resolver) client(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.Client(p.Context, str(p.Args, "id"))
	if err != nil {
		return nil, apiError(err)
	}
	return presentClient(c), nil
}

func (r *resolver) orders(p graphql.ResolveParams) (interface{}, error) {
	list, err := r.svc.Orders(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrders(list), nil
}

func (r *resolver) ordersForSeller(p graphql.ResolveParams) (interface{}, error) {
	list, err := r.svc.OrdersForSeller(p.Context)
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrders(list), nil
}

func (r *resolver) order(p graphql.ResolveParams) (interface{}, error) {
	o, err := r.svc.Order(p.Context, str(p.Args, "id"))
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrder(o), nil
}

func (r *resolver) ordersByStatus(p graphql.ResolveParams) (interface{}, error) {
	status, _ := p.Args["status"].(crm.Status)
	list, err := r.svc.OrdersByStatus(p.Context, status)
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrders(list), nil
}

func (r *resolver) topClients(p graphql.ResolveParams) (interface{}, error) {
	rs, err := r.svc.TopClients(p.Context, integer(p.Args, "limit"))
	if err != nil {
		return nil, apiError(err)
	}
	out := make([]map[string]interface{}, 0, len(rs))
	for i := range rs {
		out = append(out, map[string]interface{}{
			"client": presentClient(&rs[i].Client),
			"total":  crm.CentsToAmount(rs[i].TotalCents),
		})
	}
	return out, nil
}

func (r *resolver) topSellers(p graphql.ResolveParams) (interface{}, error) {
	rs, err := r.svc.TopSellers(p.Context, integer(p.Args, "limit"))
	if err != nil {
		return nil, apiError(err)
	}
	out := make([]map[string]interface{}, 0, len(rs))
	for i := range rs {
		out = append(out, map[string]interface{}{
			"seller": presentUser(&rs[i].Seller),
			"total":  crm.CentsToAmount(rs[i].TotalCents),
		})
	}
	return out, nil
}

// ---- mutations ----

func (r *resolver) registerUser(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p)
	u, err := r.svc.RegisterUser(p.Context, crm.NewUser{
		Name:     str(in, "name"),
		Surname:  str(in, "surname"),
		Email:    str(in, "email"),
		Password: str(in, "password"),
	})
	if err != nil {
		return nil, apiError(err)
	}
	return presentUser(u), nil
}

func (r *resolver) authenticate(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p)
	token, err := r.svc.Authenticate(p.Context, str(in, "email"), str(in, "password"))
	if err != nil {
		return nil, apiError(err)
	}
	return map[string]interface{}{"token": token}, nil
}

func productFrom(in map[string]interface{}) (crm.ProductInput, error) {
	cents, err := crm.AmountToCents(amount(in, "price"))
	if err != nil {
		return crm.ProductInput{}, err
	}
	return crm.ProductInput{
		Name:       str(in, "name"),
		Stock:      integer(in, "stock"),
		PriceCents: cents,
	}, nil
}

func (r *resolver) createProduct(p graphql.ResolveParams) (interface{}, error) {
	in, err := productFrom(inputArg(p))
	if err != nil {
		return nil, apiError(err)
	}
	prod, err := r.svc.CreateProduct(p.Context, in)
	if err != nil {
		return nil, apiError(err)
	}
	return presentProduct(prod), nil
}

func (r *resolver) updateProduct(p graphql.ResolveParams) (interface{}, error) {
	in, err := productFrom(inputArg(p))
	if err != nil {
		return nil, apiError(err)
	}
	prod, err := r.svc.UpdateProduct(p.Context, str(p.Args, "id"), in)
	if err != nil {
		return nil, apiError(err)
	}
	return presentProduct(prod), nil
}

func (r *resolver) deleteProduct(p graphql.ResolveParams) (interface{}, error) {
	if err := r.svc.DeleteProduct(p.Context, str(p.Args, "id")); err != nil {
		return nil, apiError(err)
	}
	return "product deleted", nil
}

func clientFrom(in map[string]interface{}) crm.ClientInput {
	return crm.ClientInput{
		Name:    str(in, "name"),
		Surname: str(in, "surname"),
		Company: str(in, "company"),
		Email:   str(in, "email"),
		Phone:   str(in, "phone"),
	}
}

func (r *resolver) createClient(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.CreateClient(p.Context, clientFrom(inputArg(p)))
	if err != nil {
		return nil, apiError(err)
	}
	return presentClient(c), nil
}

func (r *resolver) updateClient(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.UpdateClient(p.Context, str(p.Args, "id"), clientFrom(inputArg(p)))
	if err != nil {
		return nil, apiError(err)
	}
	return presentClient(c), nil
}

func (r *resolver) deleteClient(p graphql.ResolveParams) (interface{}, error) {
	if err := r.svc.DeleteClient(p.Context, str(p.Args, "id")); err != nil {
		return nil, apiError(err)
	}
	return "client deleted", nil
}

func (r *resolver) placeOrder(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p)
	o, err := r.svc.PlaceOrder(p.Context, crm.OrderInput{
		ClientID:       str(in, "client"),
		Items:          lineItems(in["items"]),
		IdempotencyKey: str(in, "idempotencyKey"),
	})
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrder(o), nil
}

func (r *resolver) updateOrder(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p)
	status, _ := in["status"].(crm.Status)
	o, err := r.svc.UpdateOrder(p.Context, str(p.Args, "id"), crm.OrderUpdate{
		ClientID: str(in, "client"),
		Items:    lineItems(in["items"]),
		Status:   status,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return presentOrder(o), nil
}

func (r *resolver) deleteOrder(p graphql.ResolveParams) (interface{}, error) {
	if err := r.svc.DeleteOrder(p.Context, str(p.Args, "id")); err != nil {
		return nil, apiError(err)
	}
	return "order deleted", nil
}
