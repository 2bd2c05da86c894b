package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
	"github.com/samirrijal/phonemap/internal/pkg/phone"
)

func recordMap(r domain.PhoneRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":          r.ID,
		"phoneNumber": r.PhoneNumber,
		"display":     phone.Format(r.PhoneNumber),
		"ago":         usecases.TimeAgo(r.Timestamp, time.Now()),
		"location":    r.Location,
		"lat":         r.Lat,
		"lng":         r.Lng,
		"timestamp":   r.Timestamp,
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	recordFields := graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"phoneNumber": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"display":     &graphql.Field{Type: graphql.String},
		"ago":         &graphql.Field{Type: graphql.String},
		"location":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"lat":         &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"lng":         &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"timestamp":   &graphql.Field{Type: graphql.DateTime},
	}

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "PhoneRecord",
		Fields: recordFields,
	})

	nearbyFields := graphql.Fields{"distance": &graphql.Field{Type: graphql.Float}}
	for k, v := range recordFields {
		nearbyFields[k] = v
	}
	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "NearbyRecord",
		Fields: nearbyFields,
	})

	cityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "City",
		Fields: graphql.Fields{
			"name": &graphql.Field{Type: graphql.String},
			"lat":  &graphql.Field{Type: graphql.Float},
			"lng":  &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"records": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "All records in insertion order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					records := deps.Records.List(p.Context)
					out := make([]map[string]interface{}, 0, len(records))
					for _, r := range records {
						out = append(out, recordMap(r))
					}
					return out, nil
				},
			},
			"record": &graphql.Field{
				Type:        recordType,
				Description: "Get a record by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, err := deps.Records.Get(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return recordMap(*rec), nil
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(nearbyType),
				Description: "Records near a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					point := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					near := deps.Records.Nearby(p.Context, point, p.Args["radius"].(float64), p.Args["limit"].(int))
					out := make([]map[string]interface{}, 0, len(near))
					for _, n := range near {
						m := recordMap(n.PhoneRecord)
						m["distance"] = n.Distance
						out = append(out, m)
					}
					return out, nil
				},
			},
			"cities": &graphql.Field{
				Type:        graphql.NewList(cityType),
				Description: "Locations that resolve to a known city",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []map[string]interface{}
					for _, name := range geospatial.KnownCities() {
						pt, _ := geospatial.Lookup(name)
						out = append(out, map[string]interface{}{"name": name, "lat": pt.Lat, "lng": pt.Lng})
					}
					return out, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addRecord": &graphql.Field{
				Type:        recordType,
				Description: "Submit a phone number and location",
				Args: graphql.FieldConfigArgument{
					"phoneNumber": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"location":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, err := deps.Shell.Submit(p.Context, p.Args["phoneNumber"].(string), p.Args["location"].(string))
					if err != nil {
						return nil, err
					}
					return recordMap(*rec), nil
				},
			},
			"removeRecord": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Delete a record; false if it did not exist",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shell.Delete(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
