package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	mapAreaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapArea",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	rideType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ride",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"started_at":    &graphql.Field{Type: graphql.String},
			"distance_m":    &graphql.Field{Type: graphql.Float},
			"duration_ms":   &graphql.Field{Type: graphql.Float},
			"segment_count": &graphql.Field{Type: graphql.Int},
			"point_count":   &graphql.Field{Type: graphql.Int},
			"bounds":        &graphql.Field{Type: mapAreaType},
			"created_at":    &graphql.Field{Type: graphql.String},
		},
	})

	elevationSampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ElevationSample",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "GeoPoint",
				Fields: graphql.Fields{
					"lat": &graphql.Field{Type: graphql.Float},
					"lon": &graphql.Field{Type: graphql.Float},
				},
			})},
			"elevation_m": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"rides": &graphql.Field{
				Type:        graphql.NewList(rideType),
				Description: "List imported rides, most recent first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					rides, _, err := deps.Rides.List(p.Context, limit, offset)
					return rides, err
				},
			},
			"ride": &graphql.Field{
				Type:        rideType,
				Description: "Get a ride by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Rides.Get(p.Context, id)
				},
			},
			"ridesInArea": &graphql.Field{
				Type:        graphql.NewList(rideType),
				Description: "Rides whose bounding box intersects the given area",
				Args: graphql.FieldConfigArgument{
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					area := domain.MapArea{
						MinLat: p.Args["min_lat"].(float64),
						MinLon: p.Args["min_lon"].(float64),
						MaxLat: p.Args["max_lat"].(float64),
						MaxLon: p.Args["max_lon"].(float64),
					}
					limit := p.Args["limit"].(int)
					return deps.Rides.ListInArea(p.Context, area, limit)
				},
			},
			"elevationProfile": &graphql.Field{
				Type:        graphql.NewList(elevationSampleType),
				Description: "Terrain elevation samples across a ride's bounding box",
				Args: graphql.FieldConfigArgument{
					"ride_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rideID := p.Args["ride_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Elevation.ProfileForRide(p.Context, rideID, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
