// Package graph exposes crm.Service as a GraphQL schema.
package graph

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/graphql-go/graphql"
)

// Error is what resolvers return to the executor. Only the message and the
// kind reach the client; causes of internal errors stay in the logs.
type Error struct {
	Message string
	Code    crm.Kind
}

func (e *Error) Error() string { return e.Message }

// Extensions puts the error kind under "code" in the GraphQL response.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

func apiError(err error) error {
	var ce *crm.Error
	if errors.As(err, &ce) && ce.Kind != crm.KindInternal {
		return &Error{Message: ce.Message, Code: ce.Kind}
	}
	return &Error{Message: "internal error", Code: crm.KindInternal}
}

type resolver struct{ svc *crm.Service }

// NewSchema builds the CRM schema with resolvers bound to svc.
func NewSchema(svc *crm.Service) (graphql.Schema, error) {
	r := &resolver{svc: svc}
	s, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    r.query(),
		Mutation: r.mutation(),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build schema: %w", err)
	}
	return s, nil
}

func idArg() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
}

func (r *resolver) query() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"obtainUser": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"token": {Type: graphql.NewNonNull(graphql.String)}},
				Resolve: r.obtainUser,
			},
			"products": &graphql.Field{
				Type:    graphql.NewList(productType),
				Resolve: r.products,
			},
			"product": &graphql.Field{
				Type:    productType,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.product,
			},
			"searchProducts": &graphql.Field{
				Type:    graphql.NewList(productType),
				Args:    graphql.FieldConfigArgument{"text": {Type: graphql.NewNonNull(graphql.String)}},
				Resolve: r.searchProducts,
			},
			"lowStockProducts": &graphql.Field{
				Type:    graphql.NewList(productType),
				Resolve: r.lowStockProducts,
			},
			"clients": &graphql.Field{
				Type:    graphql.NewList(clientType),
				Resolve: r.clients,
			},
			"clientsForSeller": &graphql.Field{
				Type:    graphql.NewList(clientType),
				Resolve: r.clientsForSeller,
			},
			"client": &graphql.Field{
				Type:    clientType,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.client,
			},
			"orders": &graphql.Field{
				Type:    graphql.NewList(orderType),
				Resolve: r.orders,
			},
			"ordersForSeller": &graphql.Field{
				Type:    graphql.NewList(orderType),
				Resolve: r.ordersForSeller,
			},
			"order": &graphql.Field{
				Type:    orderType,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.order,
			},
			"ordersByStatus": &graphql.Field{
				Type:    graphql.NewList(orderType),
				Args:    graphql.FieldConfigArgument{"status": {Type: graphql.NewNonNull(orderStatusEnum)}},
				Resolve: r.ordersByStatus,
			},
			"topClients": &graphql.Field{
				Type:    graphql.NewList(topClientType),
				Args:    graphql.FieldConfigArgument{"limit": {Type: graphql.Int}},
				Resolve: r.topClients,
			},
			"topSellers": &graphql.Field{
				Type:    graphql.NewList(topSellerType),
				Args:    graphql.FieldConfigArgument{"limit": {Type: graphql.Int}},
				Resolve: r.topSellers,
			},
		},
	})
}

func (r *resolver) mutation() *graphql.Object {
	input := func(t graphql.Input) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{"input": {Type: graphql.NewNonNull(t)}}
	}
	idAndInput := func(t graphql.Input) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{"id": idArg(), "input": {Type: graphql.NewNonNull(t)}}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"registerUser": &graphql.Field{
				Type:    userType,
				Args:    input(userInput),
				Resolve: r.registerUser,
			},
			"authenticate": &graphql.Field{
				Type:    tokenType,
				Args:    input(authInput),
				Resolve: r.authenticate,
			},
			"createProduct": &graphql.Field{
				Type:    productType,
				Args:    input(productInput),
				Resolve: r.createProduct,
			},
			"updateProduct": &graphql.Field{
				Type:    productType,
				Args:    idAndInput(productInput),
				Resolve: r.updateProduct,
			},
			"deleteProduct": &graphql.Field{
				Type:    graphql.String,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.deleteProduct,
			},
			"createClient": &graphql.Field{
				Type:    clientType,
				Args:    input(clientInput),
				Resolve: r.createClient,
			},
			"updateClient": &graphql.Field{
				Type:    clientType,
				Args:    idAndInput(clientInput),
				Resolve: r.updateClient,
			},
			"deleteClient": &graphql.Field{
				Type:    graphql.String,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.deleteClient,
			},
			"placeOrder": &graphql.Field{
				Type:    orderType,
				Args:    input(orderInput),
				Resolve: r.placeOrder,
			},
			"updateOrder": &graphql.Field{
				Type:    orderType,
				Args:    idAndInput(orderUpdateInput),
				Resolve: r.updateOrder,
			},
			"deleteOrder": &graphql.Field{
				Type:    graphql.String,
				Args:    graphql.FieldConfigArgument{"id": idArg()},
				Resolve: r.deleteOrder,
			},
		},
	})
}
