package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const maxRequestBytes = 1 << 20

// graphqlRequest is the GraphQL-over-HTTP request envelope.
type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// decodeRequest reads a GraphQL request from the query string of a GET or
// the JSON body of a POST.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*graphqlRequest, error) {
	req := &graphqlRequest{}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return nil, fmt.Errorf("variables are not a valid JSON object: %w", err)
			}
		}
	case http.MethodPost:
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("unable to parse media type: %w", err)
		}
		if mediaType != "application/json" {
			return nil, errors.New("unsupported content type, use application/json")
		}
		body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
		if err := json.NewDecoder(body).Decode(req); err != nil {
			return nil, fmt.Errorf("not a valid GraphQL request body: %w", err)
		}
	default:
		return nil, errors.New("unsupported request method, use GET or POST")
	}

	if req.Query == "" {
		return nil, errors.New("query is required")
	}
	return req, nil
}

// operationType returns "query", "mutation" or "subscription" for the
// operation the request selects, or "unknown" if the document does not
// parse or the operation cannot be found. The engine reports those cases.
func operationType(query, operationName string) string {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "unknown"
	}
	op := doc.Operations.ForName(operationName)
	if op == nil {
		return "unknown"
	}
	return string(op.Operation)
}

// graphqlHandler executes GraphQL requests against the schema. Mutations
// are only accepted over POST.
func (s *Server) graphqlHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(w, r)
		if err != nil {
			status := http.StatusBadRequest
			if r.Method != http.MethodGet && r.Method != http.MethodPost {
				w.Header().Set("Allow", "GET, POST")
				status = http.StatusMethodNotAllowed
			}
			writeJSON(w, status, errorBody(err.Error()))
			return
		}

		opType := operationType(req.Query, req.OperationName)
		if r.Method == http.MethodGet && opType == string(ast.Mutation) {
			w.Header().Set("Allow", "POST")
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("mutations must be sent with POST"))
			return
		}

		resp := s.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
		s.metrics.observeOperation(opType, len(resp.Errors) > 0)
		writeJSON(w, http.StatusOK, resp)
	})
}
