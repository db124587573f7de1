package graph

import (
	"encoding/json"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// call is one operation invocation resolved from a request.
type call struct {
	name      string
	key       string
	op        operation
	variables json.RawMessage
}

// plan resolves the request to a registered operation. With a query document, the single root
// field names the operation, its alias keys the response data, and its arguments become the
// operation variables. Without one, operationName and variables are used as sent.
func (r *Resolver) plan(req Request) (*call, error) {
	if strings.TrimSpace(req.Query) == "" {
		name := strings.TrimSpace(req.OperationName)
		op, ok := r.operations[name]
		if !ok {
			return nil, unknownOperation(name)
		}
		return &call{name: name, key: name, op: op, variables: req.Variables}, nil
	}

	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: req.Query})
	if err != nil {
		return nil, utils.NewValidationError("invalid query document", map[string]string{"query": err.Error()})
	}
	def := doc.Operations.ForName(req.OperationName)
	if def == nil {
		return nil, utils.NewValidationError("operation not found in document", map[string]string{
			"operationName": "document has no operation " + req.OperationName,
		})
	}
	if len(def.SelectionSet) != 1 {
		return nil, utils.NewValidationError("exactly one root field is required", map[string]string{
			"query": "exactly one root field is required",
		})
	}
	field, ok := def.SelectionSet[0].(*ast.Field)
	if !ok {
		return nil, utils.NewValidationError("root selection must be a field", map[string]string{
			"query": "root selection must be a field",
		})
	}

	op, ok := r.operations[field.Name]
	if !ok {
		return nil, unknownOperation(field.Name)
	}
	if string(def.Operation) != string(op.kind) {
		return nil, utils.NewValidationError(field.Name+" is a "+string(op.kind), map[string]string{
			"query": field.Name + " must be sent as a " + string(op.kind),
		})
	}

	vars := map[string]interface{}{}
	if len(req.Variables) > 0 && string(req.Variables) != "null" {
		if err := json.Unmarshal(req.Variables, &vars); err != nil {
			return nil, utils.NewValidationError("invalid variables", map[string]string{"variables": "variables must be an object"})
		}
	}
	args := map[string]interface{}{}
	for _, arg := range field.Arguments {
		v, err := arg.Value.Value(vars)
		if err != nil {
			return nil, utils.NewValidationError("invalid argument", map[string]string{arg.Name: err.Error()})
		}
		args[arg.Name] = v
	}
	// mutation(input: {...}) is flattened into the operation variables
	if len(args) == 1 {
		if input, ok := args["input"].(map[string]interface{}); ok {
			args = input
		}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, utils.WrapInternal(err, "encode arguments")
	}

	key := field.Alias
	if key == "" {
		key = field.Name
	}
	return &call{name: field.Name, key: key, op: op, variables: raw}, nil
}

func unknownOperation(name string) error {
	return utils.NewValidationError("unknown operation", map[string]string{"operationName": "unknown operation " + name})
}
