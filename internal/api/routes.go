package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/concierge/pkg/openapi"
	"github.com/JaimeStill/concierge/pkg/routes"
)

func routeGroups(domain *Domain) []routes.Group {
	return []routes.Group{
		domain.Messages.Handler().Routes(),
		domain.Tickets.Handler().Routes(),
		domain.Interactions.Handler().Routes(),
	}
}

func registerRoutes(mux *http.ServeMux, groups []routes.Group) {
	routes.Register(mux, groups...)
}

// checkDocumented fails when a registered route has no operation in spec.
func checkDocumented(spec *openapi.Spec, groups []routes.Group) error {
	var missing []string
	routes.Walk(func(path string, r routes.Route) {
		item := spec.Paths[path]
		var op *openapi.Operation
		if item != nil {
			switch r.Method {
			case http.MethodGet:
				op = item.Get
			case http.MethodPost:
				op = item.Post
			case http.MethodPut:
				op = item.Put
			}
		}
		if op == nil {
			missing = append(missing, r.Method+" "+path)
		}
	}, groups...)

	if len(missing) > 0 {
		return fmt.Errorf("undocumented routes: %v", missing)
	}
	return nil
}
