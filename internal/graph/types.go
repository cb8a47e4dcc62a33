package graph

import (
	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/graphql-go/graphql"
)

var orderStatusEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "OrderStatus",
	Values: graphql.EnumValueConfigMap{
		"PENDING":   &graphql.EnumValueConfig{Value: crm.StatusPending},
		"COMPLETED": &graphql.EnumValueConfig{Value: crm.StatusCompleted},
		"CANCELED":  &graphql.EnumValueConfig{Value: crm.StatusCanceled},
	},
})

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.String},
		"surname":   &graphql.Field{Type: graphql.String},
		"email":     &graphql.Field{Type: graphql.String},
		"createdAt": &graphql.Field{Type: graphql.DateTime},
	},
})

var tokenType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Token",
	Fields: graphql.Fields{
		"token": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"stock":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"price":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"createdAt": &graphql.Field{Type: graphql.DateTime},
		"updatedAt": &graphql.Field{Type: graphql.DateTime},
	},
})

var clientType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Client",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"surname":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"company":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"phone":     &graphql.Field{Type: graphql.String},
		"seller":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"createdAt": &graphql.Field{Type: graphql.DateTime},
		"updatedAt": &graphql.Field{Type: graphql.DateTime},
	},
})

var orderItemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderItem",
	Fields: graphql.Fields{
		"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"quantity": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"price":    &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"items":     &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(orderItemType)))},
		"total":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"client":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"seller":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"status":    &graphql.Field{Type: graphql.NewNonNull(orderStatusEnum)},
		"createdAt": &graphql.Field{Type: graphql.DateTime},
		"updatedAt": &graphql.Field{Type: graphql.DateTime},
	},
})

var topClientType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TopClient",
	Fields: graphql.Fields{
		"client": &graphql.Field{Type: graphql.NewNonNull(clientType)},
		"total":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var topSellerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TopSeller",
	Fields: graphql.Fields{
		"seller": &graphql.Field{Type: graphql.NewNonNull(userType)},
		"total":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
	},
})

func nonNullString() *graphql.InputObjectFieldConfig {
	return &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)}
}

var userInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":     nonNullString(),
		"surname":  nonNullString(),
		"email":    nonNullString(),
		"password": nonNullString(),
	},
})

var authInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "AuthInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"email":    nonNullString(),
		"password": nonNullString(),
	},
})

var productInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ProductInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":  nonNullString(),
		"stock": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		"price": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var clientInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ClientInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":    nonNullString(),
		"surname": nonNullString(),
		"company": nonNullString(),
		"email":   nonNullString(),
		"phone":   &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var orderItemInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "OrderItemInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"quantity": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var orderInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "OrderInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"client":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"items":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(orderItemInput)))},
		"idempotencyKey": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var orderUpdateInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "OrderUpdateInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"client": &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"items":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(orderItemInput))},
		"status": &graphql.InputObjectFieldConfig{Type: orderStatusEnum},
	},
})

// ---- presenters ----
// Domain values are flattened into maps so field names and units (prices as
// decimals) are decided here rather than by struct tags.

func presentUser(u *crm.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"surname":   u.Surname,
		"email":     u.Email,
		"createdAt": u.CreatedAt,
	}
}

func presentIdentity(id auth.Identity) map[string]any {
	return map[string]any{
		"id":      id.ID,
		"name":    id.Name,
		"surname": id.Surname,
		"email":   id.Email,
	}
}

func presentProduct(p *crm.Product) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"stock":     p.Stock,
		"price":     crm.CentsToAmount(p.PriceCents),
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
}

func presentProducts(ps []crm.Product) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for i := range ps {
		out = append(out, presentProduct(&ps[i]))
	}
	return out
}

func presentClient(c *crm.Client) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"name":      c.Name,
		"surname":   c.Surname,
		"company":   c.Company,
		"email":     c.Email,
		"phone":     c.Phone,
		"seller":    c.SellerID,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
}

func presentClients(cs []crm.Client) []map[string]any {
	out := make([]map[string]any, 0, len(cs))
	for i := range cs {
		out = append(out, presentClient(&cs[i]))
	}
	return out
}

func presentOrder(o *crm.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"id":       it.ProductID,
			"quantity": it.Qty,
			"price":    crm.CentsToAmount(it.PriceCents),
		})
	}
	return map[string]any{
		"id":        o.ID,
		"items":     items,
		"total":     crm.CentsToAmount(o.TotalCents),
		"client":    o.ClientID,
		"seller":    o.SellerID,
		"status":    o.Status,
		"createdAt": o.CreatedAt,
		"updatedAt": o.UpdatedAt,
	}
}

func presentOrders(list []crm.Order) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for i := range list {
		out = append(out, presentOrder(&list[i]))
	}
	return out
}
