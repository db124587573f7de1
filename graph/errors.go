package graph

import (
	"encoding/json"
	"errors"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// toGQLError renders err for clients. Internal details never leave the server.
func toGQLError(operationName string, err error) *gqlerror.Error {
	kind := utils.ErrorKindOf(err)
	message := err.Error()
	if kind == utils.ErrorKindInternal {
		message = "internal server error"
	}
	gqlErr := &gqlerror.Error{
		Message:    message,
		Extensions: map[string]interface{}{"code": string(kind)},
	}
	if operationName != "" {
		gqlErr.Path = ast.Path{ast.PathName(operationName)}
	}
	if fields := utils.ErrorFields(err); len(fields) > 0 {
		gqlErr.Extensions["errors"] = fields
	}
	return gqlErr
}

// decodeVariables reads the operation variables. Absent or null variables decode as an empty object.
func decodeVariables(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return utils.NewValidationError("invalid variables", map[string]string{
				typeErr.Field: typeErr.Field + " must be a " + typeErr.Type.String(),
			})
		}
		return utils.NewValidationError("invalid variables", map[string]string{
			"variables": "variables must be an object",
		})
	}
	return nil
}
