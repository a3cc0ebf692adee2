package errors

import "fmt"

// Node error codes.
const (
	CodeNodeNotFound    = "NODE_NOT_FOUND"
	CodeNodeNameTaken   = "NODE_NAME_TAKEN"
	CodeRootProtected   = "ROOT_PROTECTED"
	CodeLeafNoChildren  = "LEAF_CANNOT_HAVE_CHILDREN"
	CodeWindowExhausted = "NAME_WINDOW_EXHAUSTED"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNameInvalid      = "NAME_INVALID"
	CodeNameRequired     = "NAME_REQUIRED"
	CodeCountInvalid     = "COUNT_INVALID"
	CodeWindowInvalid    = "WINDOW_INVALID"
)

// System error codes.
const (
	CodeInternal      = "INTERNAL_ERROR"
	CodeRouteNotFound = "ROUTE_NOT_FOUND"
)

// Convenience constructors using predefined codes.

// ErrNodeNotFoundf reports a missing node id.
func ErrNodeNotFoundf(id int64) *AppError {
	return NotFound(CodeNodeNotFound, fmt.Sprintf("Node with id %d doesn't exist", id)).
		WithParams(map[string]interface{}{"id": id})
}

// ErrNodeNameTakenf reports a name that is already used by another node.
func ErrNodeNameTakenf(name string) *AppError {
	return Conflict(CodeNodeNameTaken, fmt.Sprintf("Node with name %s already exists", name)).
		WithParams(map[string]interface{}{"name": name})
}

// ErrNameRequired is returned when a create request carries no name.
func ErrNameRequired() *AppError {
	return Validation(CodeNameRequired, "Please send a name to call the new node").
		WithFieldErrors([]FieldError{{Field: "name", Code: CodeNameRequired}})
}

// ErrFieldInvalidf reports a single malformed request field.
func ErrFieldInvalidf(field, code, message string) *AppError {
	return Validation(code, message).
		WithFieldErrors([]FieldError{{Field: field, Code: code, Message: message}})
}

// ErrRootProtectedf is returned when a mutation would alter a root node's identity.
func ErrRootProtectedf(id int64) *AppError {
	return Forbidden(CodeRootProtected, fmt.Sprintf("Node %d is a root node and cannot be modified or deleted", id)).
		WithParams(map[string]interface{}{"id": id})
}

// ErrLeafNoChildrenf is returned when sub-nodes are requested for a leaf.
func ErrLeafNoChildrenf(id int64) *AppError {
	return Forbidden(CodeLeafNoChildren, fmt.Sprintf("Node %d cannot have children", id)).
		WithParams(map[string]interface{}{"id": id})
}

// ErrWindowExhaustedf is returned when the parent's numeric window cannot yield
// enough unused names.
func ErrWindowExhaustedf(id int64, count int) *AppError {
	return Conflict(CodeWindowExhausted, fmt.Sprintf("Node %d has no room for %d unique sub node names", id, count)).
		WithParams(map[string]interface{}{"id": id, "count": count})
}
