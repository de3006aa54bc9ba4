package api

import (
	"github.com/JaimeStill/concierge/internal/tickets"
	"github.com/JaimeStill/concierge/internal/workflow"
	"github.com/JaimeStill/concierge/pkg/openapi"
)

func ptr[T any](v T) *T { return &v }

func queryParam(name, description string, schema *openapi.Schema) *openapi.Parameter {
	return &openapi.Parameter{Name: name, In: "query", Description: description, Schema: schema}
}

func pathID(description string, schema *openapi.Schema) *openapi.Parameter {
	return &openapi.Parameter{Name: "id", In: "path", Required: true, Description: description, Schema: schema}
}

var (
	str         = &openapi.Schema{Type: "string"}
	ticketIDSch = &openapi.Schema{Type: "string", Pattern: "^[0-9]{6}$", Example: "123456"}
	uuidSch     = &openapi.Schema{Type: "string", Format: "uuid"}
	timeSch     = &openapi.Schema{Type: "string", Format: "date-time"}
)

func pageParams() []*openapi.Parameter {
	return []*openapi.Parameter{
		queryParam("page", "Page number (1-indexed)", &openapi.Schema{Type: "integer", Example: 1}),
		queryParam("page_size", "Results per page", &openapi.Schema{Type: "integer", Example: 20}),
		queryParam("sort", "Comma-separated sort fields, prefix with - for descending", str),
	}
}

func statusEnum() []any {
	var out []any
	for _, s := range tickets.Statuses() {
		out = append(out, string(s))
	}
	return out
}

func classificationEnum() []any {
	return []any{
		string(workflow.ClassPositive),
		string(workflow.ClassNegative),
		string(workflow.ClassQuery),
		string(workflow.ClassUnknown),
	}
}

func schemas(maxMessage int) map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"MessageInput": {
			Type:     "object",
			Required: []string{"message", "customer_id", "customer_name"},
			Properties: map[string]*openapi.Schema{
				"message":       {Type: "string", MaxLength: ptr(maxMessage)},
				"customer_id":   {Type: "string", Example: "CUST001"},
				"customer_name": {Type: "string", Example: "Alex"},
			},
		},
		"StageError": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"kind":    str,
				"message": str,
			},
		},
		"WorkflowResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"interaction_id":     uuidSch,
				"classification":     {Type: "string", Enum: classificationEnum()},
				"confidence":         {Type: "number", Minimum: ptr(0.0), Maximum: ptr(1.0)},
				"extracted_topic":    str,
				"response":           str,
				"ticket_id":          ticketIDSch,
				"ticket_status":      {Type: "string", Enum: statusEnum()},
				"processing_time_ms": {Type: "integer"},
				"agent_name":         str,
				"manual_review":      {Type: "boolean"},
				"errors":             {Type: "array", Items: openapi.SchemaRef("StageError")},
			},
		},
		"Ticket": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"ticket_id":       ticketIDSch,
				"customer_id":     str,
				"customer_name":   str,
				"message_content": str,
				"classification":  str,
				"status":          {Type: "string", Enum: statusEnum()},
				"agent_response":  str,
				"created_at":      timeSch,
				"last_updated":    timeSch,
				"resolved_at":     timeSch,
			},
		},
		"StatusUpdate": {
			Type:     "object",
			Required: []string{"status"},
			Properties: map[string]*openapi.Schema{
				"status": {Type: "string", Enum: statusEnum()},
			},
		},
		"InteractionEntry": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                 uuidSch,
				"customer_id":        str,
				"input_message":      str,
				"classification":     str,
				"confidence":         {Type: "number"},
				"extracted_topic":    str,
				"ticket_id":          ticketIDSch,
				"agent_path":         str,
				"response":           str,
				"processing_time_ms": {Type: "integer"},
				"manual_review":      {Type: "boolean"},
				"errors":             {Type: "array", Items: openapi.SchemaRef("StageError")},
				"timestamp":          timeSch,
			},
		},
		"InteractionStats": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"window": {
					Type:       "object",
					Properties: map[string]*openapi.Schema{"since": timeSch, "until": timeSch},
				},
				"total":                 {Type: "integer"},
				"by_classification":     {Type: "object", AdditionalProperties: &openapi.Schema{Type: "integer"}},
				"average_confidence":    {Type: "number"},
				"average_processing_ms": {Type: "number"},
				"manual_review_count":   {Type: "integer"},
			},
		},
	}
}

func pageOf(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(item)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

// buildSpec describes every route registered by registerRoutes.
func buildSpec(runtime *Runtime, cfg *openapi.Config, basePath, version string) *openapi.Spec {
	spec := openapi.NewSpec(cfg, version)
	spec.AddServer(cfg.Server(basePath))
	spec.Components.AddSchemas(schemas(runtime.Workflow.MaxMessageLength))

	errs := func(codes ...string) map[string]*openapi.Response {
		out := map[string]*openapi.Response{}
		for _, c := range codes {
			switch c {
			case "400":
				out[c] = openapi.ResponseRef("BadRequest")
			case "404":
				out[c] = openapi.ResponseRef("NotFound")
			case "503":
				out[c] = openapi.ResponseRef("ServiceUnavailable")
			default:
				out[c] = openapi.ResponseRef("InternalError")
			}
		}
		return out
	}
	with := func(ok *openapi.Response, rest map[string]*openapi.Response) map[string]*openapi.Response {
		rest["200"] = ok
		return rest
	}

	spec.Path("/messages").Post = &openapi.Operation{
		Summary:     "Process a customer message through the support workflow",
		Tags:        []string{"Messages"},
		RequestBody: openapi.JSONBody("MessageInput"),
		Responses: with(
			openapi.JSONResponse("Workflow result", openapi.SchemaRef("WorkflowResult")),
			errs("400", "500", "503"),
		),
	}

	spec.Path("/tickets").Get = &openapi.Operation{
		Summary: "List tickets",
		Tags:    []string{"Tickets"},
		Parameters: append(pageParams(),
			queryParam("customer_id", "Filter by customer", str),
			queryParam("status", "Filter by status", &openapi.Schema{Type: "string", Enum: statusEnum()}),
			queryParam("classification", "Filter by classification", str),
		),
		Responses: with(openapi.JSONResponse("Ticket page", pageOf("Ticket")), errs("400", "500")),
	}
	spec.Path("/tickets/statuses").Get = &openapi.Operation{
		Summary: "List ticket statuses in lifecycle order",
		Tags:    []string{"Tickets"},
		Responses: with(
			openapi.JSONResponse("Statuses", &openapi.Schema{Type: "array", Items: &openapi.Schema{Type: "string", Enum: statusEnum()}}),
			errs(),
		),
	}
	spec.Path("/tickets/{id}").Get = &openapi.Operation{
		Summary:    "Find a ticket",
		Tags:       []string{"Tickets"},
		Parameters: []*openapi.Parameter{pathID("Six-digit ticket id", ticketIDSch)},
		Responses:  with(openapi.JSONResponse("Ticket", openapi.SchemaRef("Ticket")), errs("400", "404")),
	}
	spec.Path("/tickets/{id}/status").Put = &openapi.Operation{
		Summary:     "Advance a ticket's status",
		Tags:        []string{"Tickets"},
		Parameters:  []*openapi.Parameter{pathID("Six-digit ticket id", ticketIDSch)},
		RequestBody: openapi.JSONBody("StatusUpdate"),
		Responses:   with(openapi.JSONResponse("Updated ticket", openapi.SchemaRef("Ticket")), errs("400", "404")),
	}

	spec.Path("/interactions").Get = &openapi.Operation{
		Summary: "List interaction log entries",
		Tags:    []string{"Interactions"},
		Parameters: append(pageParams(),
			queryParam("customer_id", "Filter by customer", str),
			queryParam("classification", "Filter by classification", str),
			queryParam("manual_review", "Filter by manual review flag", &openapi.Schema{Type: "boolean"}),
		),
		Responses: with(openapi.JSONResponse("Entry page", pageOf("InteractionEntry")), errs("400", "500")),
	}
	spec.Path("/interactions/stats").Get = &openapi.Operation{
		Summary:    "Aggregate the interaction log over recent days",
		Tags:       []string{"Interactions"},
		Parameters: []*openapi.Parameter{queryParam("days", "Window length in days, 1 to 3650 (default 7)", &openapi.Schema{Type: "integer"})},
		Responses:  with(openapi.JSONResponse("Stats", openapi.SchemaRef("InteractionStats")), errs("400", "500")),
	}
	spec.Path("/interactions/{id}").Get = &openapi.Operation{
		Summary:    "Find an interaction log entry",
		Tags:       []string{"Interactions"},
		Parameters: []*openapi.Parameter{pathID("Entry id", uuidSch)},
		Responses:  with(openapi.JSONResponse("Entry", openapi.SchemaRef("InteractionEntry")), errs("400", "404")),
	}
	spec.Path("/interactions/{id}/archive").Get = &openapi.Operation{
		Summary:    "Download the archived copy of an entry",
		Tags:       []string{"Interactions"},
		Parameters: []*openapi.Parameter{pathID("Entry id", uuidSch)},
		Responses:  with(openapi.JSONResponse("Archived entry", openapi.SchemaRef("InteractionEntry")), errs("400", "404", "500")),
	}

	return spec
}
