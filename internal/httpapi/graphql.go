package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"address-validator/internal/address"
	"address-validator/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// The GraphQL surface is three read-only query fields. Documents are parsed with
// gqlparser and executed directly; there is no schema validation step.
//
//	searchLocations(query: String!, state: String): [Location]
//	validateAddress(postcode: String!, suburb: String!, state: String!): ValidationResult
//	searchSuburbs(query: String!, state: String, categories: [String]): [Location]

type graphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type validationResult struct {
	IsValid         bool    `json:"isValid"`
	Error           *string `json:"error"`
	MatchedLocation any     `json:"matchedLocation"`
}

var graphQLOperations = []gin.H{
	{"name": "searchLocations", "description": "Search for locations by query"},
	{"name": "validateAddress", "description": "Validate postcode, suburb, and state"},
	{"name": "searchSuburbs", "description": "Search suburbs with filtering"},
}

func (h Handlers) setCORS(c *gin.Context) {
	origin := h.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}

func (h Handlers) GraphQLPreflight(c *gin.Context) {
	h.setCORS(c)
	c.Status(http.StatusOK)
}

func (h Handlers) GraphQLInfo(c *gin.Context) {
	if h.Development {
		c.JSON(http.StatusOK, gin.H{
			"endpoint":   "POST /graphql",
			"operations": graphQLOperations,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "GraphQL API - Use POST method to send queries"})
}

func graphQLErrors(c *gin.Context, status int, errs gqlerror.List) {
	c.AbortWithStatusJSON(status, gin.H{"errors": errs})
}

// GraphQL executes one query operation. Any field error fails the whole response with 400.
func (h Handlers) GraphQL(c *gin.Context) {
	h.setCORS(c)

	var req graphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		graphQLErrors(c, http.StatusBadRequest, gqlerror.List{gqlerror.Errorf("invalid json")})
		return
	}

	doc, err := parser.ParseQuery(&ast.Source{Input: req.Query})
	if err != nil {
		var gerr *gqlerror.Error
		if !errors.As(err, &gerr) {
			gerr = gqlerror.Errorf("%s", err.Error())
		}
		graphQLErrors(c, http.StatusBadRequest, gqlerror.List{gerr})
		return
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		graphQLErrors(c, http.StatusBadRequest, gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)})
		return
	}
	if op.Operation != ast.Query {
		graphQLErrors(c, http.StatusBadRequest, gqlerror.List{gqlerror.Errorf("only query operations are supported")})
		return
	}

	vars := variablesWithDefaults(op, req.Variables)
	data := make(map[string]any, len(op.SelectionSet))
	var errs gqlerror.List

	for _, f := range collectFields(op.SelectionSet, doc.Fragments) {
		key := f.Alias
		if key == "" {
			key = f.Name
		}
		if f.Name == "__typename" {
			data[key] = "Query"
			continue
		}

		val, err := h.resolveField(c.Request.Context(), f, vars)
		if err != nil {
			logger.FromGin(c).Warn("graphql field failed", "field", f.Name, "err", err)
			errs = append(errs, &gqlerror.Error{
				Message: err.Error(),
				Path:    ast.Path{ast.PathName(key)},
			})
			continue
		}
		projected, err := project(val, f.SelectionSet, doc.Fragments)
		if err != nil {
			errs = append(errs, &gqlerror.Error{Message: "internal error", Path: ast.Path{ast.PathName(key)}})
			continue
		}
		data[key] = projected
	}

	if len(errs) > 0 {
		graphQLErrors(c, http.StatusBadRequest, errs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h Handlers) resolveField(ctx context.Context, f *ast.Field, vars map[string]any) (any, error) {
	args := make(map[string]any, len(f.Arguments))
	for _, a := range f.Arguments {
		v, err := a.Value.Value(vars)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", a.Name, err)
		}
		args[a.Name] = v
	}

	switch f.Name {
	case "searchLocations":
		if h.Lookup == nil {
			return nil, errors.New("Failed to execute searchLocations: lookup not configured")
		}
		locs, err := h.Lookup.Lookup(ctx, stringArg(args, "query"), stringArg(args, "state"))
		if err != nil {
			return nil, fmt.Errorf("Failed to execute searchLocations: %w", err)
		}
		return locs, nil

	case "validateAddress":
		if h.Address == nil {
			return nil, errors.New("Failed to execute validateAddress: address service not configured")
		}
		v, err := h.Address.Validate(ctx, address.ValidateRequest{
			Postcode: stringArg(args, "postcode"),
			Suburb:   stringArg(args, "suburb"),
			State:    stringArg(args, "state"),
		})
		if err != nil && !errors.Is(err, address.ErrInvalidInput) {
			return nil, fmt.Errorf("Failed to execute validateAddress: %w", err)
		}
		res := validationResult{IsValid: v.IsValid}
		if v.Error != "" {
			res.Error = &v.Error
		}
		if v.MatchedLocation != nil {
			res.MatchedLocation = v.MatchedLocation
		}
		return res, nil

	case "searchSuburbs":
		if h.Address == nil {
			return nil, errors.New("Failed to execute searchSuburbs: address service not configured")
		}
		locs, err := h.Address.Search(ctx, address.SearchRequest{
			Query:      stringArg(args, "query"),
			State:      stringArg(args, "state"),
			Categories: stringListArg(args, "categories"),
		})
		if err != nil {
			return nil, fmt.Errorf("Failed to execute searchSuburbs: %w", err)
		}
		return locs, nil

	default:
		return nil, fmt.Errorf("Unknown operation: %s", f.Name)
	}
}

func variablesWithDefaults(op *ast.OperationDefinition, vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars)+len(op.VariableDefinitions))
	for k, v := range vars {
		out[k] = v
	}
	for _, vd := range op.VariableDefinitions {
		if _, ok := out[vd.Variable]; ok || vd.DefaultValue == nil {
			continue
		}
		if v, err := vd.DefaultValue.Value(nil); err == nil {
			out[vd.Variable] = v
		}
	}
	return out
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func stringListArg(args map[string]any, name string) []string {
	switch v := args[name].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// collectFields flattens inline fragments and fragment spreads into their fields.
func collectFields(set ast.SelectionSet, frags ast.FragmentDefinitionList) []*ast.Field {
	var out []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			out = append(out, s)
		case *ast.InlineFragment:
			out = append(out, collectFields(s.SelectionSet, frags)...)
		case *ast.FragmentSpread:
			if def := frags.ForName(s.Name); def != nil {
				out = append(out, collectFields(def.SelectionSet, frags)...)
			}
		}
	}
	return out
}

// project keeps only the selected fields of a resolved value.
func project(val any, set ast.SelectionSet, frags ast.FragmentDefinitionList) (any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return projectValue(generic, set, frags), nil
}

func projectValue(v any, set ast.SelectionSet, frags ast.FragmentDefinitionList) any {
	if len(set) == 0 {
		return v
	}
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = projectValue(item, set, frags)
		}
		return out
	case map[string]any:
		out := make(map[string]any)
		for _, f := range collectFields(set, frags) {
			key := f.Alias
			if key == "" {
				key = f.Name
			}
			if f.Name == "__typename" {
				out[key] = typenameOf(t)
				continue
			}
			out[key] = projectValue(t[f.Name], f.SelectionSet, frags)
		}
		return out
	default:
		return v
	}
}

func typenameOf(m map[string]any) string {
	if _, ok := m["isValid"]; ok {
		return "ValidationResult"
	}
	return "Location"
}
