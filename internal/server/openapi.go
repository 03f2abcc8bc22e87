package server

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// handleOpenAPISpec serves the API document built by buildOpenAPIDoc.
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	doc := buildOpenAPIDoc()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Error serializing OpenAPI document")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// buildOpenAPIDoc constructs the OpenAPI 3 description of the public surface.
// The document is assembled in code so it cannot drift from the routes the
// server actually registers.
func buildOpenAPIDoc() *openapi3.T {
	completionRequest := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("prompt", openapi3.NewStringSchema()).
		WithProperty("max_tokens", openapi3.NewIntegerSchema()).
		WithProperty("temperature", openapi3.NewFloat64Schema()).
		WithProperty("complexity", openapi3.NewStringSchema().WithEnum("simple", "moderate", "complex")).
		WithProperty("priority", openapi3.NewStringSchema().WithEnum("low", "normal", "high")).
		WithProperty("constraints", openapi3.NewObjectSchema().
			WithProperty("max_cost", openapi3.NewFloat64Schema()).
			WithProperty("max_latency_ms", openapi3.NewFloat64Schema()).
			WithProperty("min_quality_score", openapi3.NewFloat64Schema()))
	completionRequest.Required = []string{"prompt"}

	completionResponse := openapi3.NewObjectSchema().
		WithProperty("request_id", openapi3.NewStringSchema()).
		WithProperty("provider", openapi3.NewStringSchema()).
		WithProperty("content", openapi3.NewStringSchema()).
		WithProperty("input_tokens", openapi3.NewIntegerSchema()).
		WithProperty("output_tokens", openapi3.NewIntegerSchema()).
		WithProperty("actual_cost", openapi3.NewFloat64Schema()).
		WithProperty("latency_ms", openapi3.NewFloat64Schema()).
		WithProperty("fallback_used", openapi3.NewBoolSchema()).
		WithProperty("reasoning", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))

	errorResponse := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewObjectSchema().
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("type", openapi3.NewStringSchema()).
			WithProperty("code", openapi3.NewIntegerSchema())).
		WithProperty("timestamp", openapi3.NewIntegerSchema())

	budgetStatus := openapi3.NewObjectSchema().
		WithProperty("can_proceed", openapi3.NewBoolSchema()).
		WithProperty("should_alert", openapi3.NewBoolSchema()).
		WithProperty("remaining", openapi3.NewFloat64Schema()).
		WithProperty("percent_used", openapi3.NewFloat64Schema()).
		WithProperty("limit", openapi3.NewFloat64Schema()).
		WithProperty("reason", openapi3.NewStringSchema())

	jsonResponse := func(description string, schema *openapi3.Schema) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(description).
				WithJSONSchema(schema),
		}
	}

	completionsOp := &openapi3.Operation{
		OperationID: "createCompletion",
		Summary:     "Route a completion request to the best provider",
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchema(completionRequest),
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, jsonResponse("Completed", completionResponse)),
			openapi3.WithStatus(400, jsonResponse("Malformed request", errorResponse)),
			openapi3.WithStatus(402, jsonResponse("Daily budget exhausted", errorResponse)),
			openapi3.WithStatus(422, jsonResponse("No provider satisfies the constraints", errorResponse)),
			openapi3.WithStatus(429, jsonResponse("Provider rate limited", errorResponse)),
			openapi3.WithStatus(502, jsonResponse("All providers failed", errorResponse)),
			openapi3.WithStatus(504, jsonResponse("Provider call timed out", errorResponse)),
		),
	}

	providersOp := &openapi3.Operation{
		OperationID: "listProviders",
		Summary:     "List provider profiles with live metrics",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, jsonResponse("Provider profiles", openapi3.NewObjectSchema().
				WithProperty("providers", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())).
				WithProperty("count", openapi3.NewIntegerSchema()))),
		),
	}

	budgetOp := &openapi3.Operation{
		OperationID: "getBudget",
		Summary:     "Current daily budget status",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, jsonResponse("Budget status", budgetStatus)),
		),
	}

	analyticsOp := &openapi3.Operation{
		OperationID: "getAnalytics",
		Summary:     "Windowed routing analytics",
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter("window_hours").
					WithSchema(openapi3.NewIntegerSchema().WithDefault(24)),
			},
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, jsonResponse("Analytics report", openapi3.NewObjectSchema())),
			openapi3.WithStatus(400, jsonResponse("Invalid window", errorResponse)),
		),
	}

	healthOp := &openapi3.Operation{
		OperationID: "getHealth",
		Summary:     "Service health",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, jsonResponse("Healthy", openapi3.NewObjectSchema().
				WithProperty("status", openapi3.NewStringSchema()))),
		),
	}

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Cost Router API",
			Description: "Cost-aware completion routing across multiple model providers",
			Version:     "1.0.0",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/v1/completions", &openapi3.PathItem{Post: completionsOp}),
			openapi3.WithPath("/v1/providers", &openapi3.PathItem{Get: providersOp}),
			openapi3.WithPath("/v1/budget", &openapi3.PathItem{Get: budgetOp}),
			openapi3.WithPath("/v1/analytics", &openapi3.PathItem{Get: analyticsOp}),
			openapi3.WithPath("/health", &openapi3.PathItem{Get: healthOp}),
		),
	}
}
