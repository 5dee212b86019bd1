// Package graphql exposes the public catalog as a read-only GraphQL schema.
package graphql

import (
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	gql "github.com/shashiranjanraj/giftkart/pkg/graphql"
)

var giftCardType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GiftCard",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: card(func(c models.GiftCard) any { return int(c.ID) })},
		"brand":     &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: card(func(c models.GiftCard) any { return c.Brand })},
		"value":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: card(func(c models.GiftCard) any { return c.Value.InexactFloat64() })},
		"price":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: card(func(c models.GiftCard) any { return c.Price.InexactFloat64() })},
		"imageUrl":  &graphql.Field{Type: graphql.String, Resolve: card(func(c models.GiftCard) any { return c.ImageURL })},
		"stock":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: card(func(c models.GiftCard) any { return c.Stock })},
		"inStock":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: card(func(c models.GiftCard) any { return c.Stock > 0 })},
		"createdAt": &graphql.Field{Type: graphql.String, Resolve: card(func(c models.GiftCard) any { return c.CreatedAt.Format(time.RFC3339) })},
	},
})

var giftCardPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GiftCardPage",
	Fields: graphql.Fields{
		"giftCards":      &graphql.Field{Type: graphql.NewList(giftCardType), Resolve: page(func(p services.GiftCardPage) any { return p.GiftCards })},
		"totalGiftCards": &graphql.Field{Type: graphql.Int, Resolve: page(func(p services.GiftCardPage) any { return int(p.TotalGiftCards) })},
		"totalPages":     &graphql.Field{Type: graphql.Int, Resolve: page(func(p services.GiftCardPage) any { return p.TotalPages })},
		"currentPage":    &graphql.Field{Type: graphql.Int, Resolve: page(func(p services.GiftCardPage) any { return p.CurrentPage })},
	},
})

// NewSchema builds the catalog schema on top of svc:
//
//	{ giftCards(page: 1, limit: 10, search: "play") { totalGiftCards giftCards { id brand price } } }
//	{ giftCard(id: 3) { brand stock } }
func NewSchema(svc *services.GiftCardService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"giftCards": &graphql.Field{
				Type: giftCardPageType,
				Args: graphql.FieldConfigArgument{
					"page":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
					"brand":  &graphql.ArgumentConfig{Type: graphql.String},
					"search": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					q := services.GiftCardQuery{}
					q.Page, _ = p.Args["page"].(int)
					q.Limit, _ = p.Args["limit"].(int)
					q.Brand, _ = p.Args["brand"].(string)
					q.Search, _ = p.Args["search"].(string)
					res, err := svc.List(p.Context, q)
					return res, public(err)
				},
			},
			"giftCard": &graphql.Field{
				Type: giftCardType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(int)
					if id <= 0 {
						return nil, errors.New("id must be positive")
					}
					c, err := svc.Get(p.Context, uint(id))
					if err != nil {
						return nil, public(err)
					}
					return c, nil
				},
			},
		},
	})
	return gql.NewSchema(query)
}

func card(fn func(models.GiftCard) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, ok := p.Source.(models.GiftCard)
		if !ok {
			return nil, nil
		}
		return fn(c), nil
	}
}

func page(fn func(services.GiftCardPage) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		pg, ok := p.Source.(services.GiftCardPage)
		if !ok {
			return nil, nil
		}
		return fn(pg), nil
	}
}

// public hides internal failure details from GraphQL clients.
func public(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(apperr.PublicMessage(err))
}
