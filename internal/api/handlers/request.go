package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/service"
)

const maxBodyBytes = 64 << 10

// Request bodies keep every field raw so that absent, null and mistyped
// values can be told apart.
type createNodeRequest struct {
	Name json.RawMessage `json:"name"`
}

type updateNodeRequest struct {
	Name   json.RawMessage `json:"name"`
	MinNum json.RawMessage `json:"min_num"`
	MaxNum json.RawMessage `json:"max_num"`
}

type regenerateRequest struct {
	Count json.RawMessage `json:"count"`
}

// decodeBody strictly decodes the JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(c *gin.Context, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return malformedBody("request body could not be read")
	}
	if len(raw) > maxBodyBytes {
		return malformedBody("request body is too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return malformedBody(describeDecodeError(err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return malformedBody("request body must contain a single JSON object")
	}
	return nil
}

func describeDecodeError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return "request body must be a JSON object"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON"
	default:
		// Unknown fields surface as `json: unknown field "x"`.
		return err.Error()
	}
}

func malformedBody(msg string) *apperrors.AppError {
	return apperrors.Validation(apperrors.CodeValidationFailed, msg)
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeString(field string, raw json.RawMessage) (*string, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperrors.ErrFieldInvalidf(field, apperrors.CodeValidationFailed, field+" must be a string")
	}
	return &v, nil
}

func decodeInt(field, code string, raw json.RawMessage) (*int, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperrors.ErrFieldInvalidf(field, code, field+" must be an integer")
	}
	return &v, nil
}

func (r createNodeRequest) toInput() (service.CreateNodeInput, error) {
	name, err := decodeString("name", r.Name)
	if err != nil {
		return service.CreateNodeInput{}, err
	}
	return service.CreateNodeInput{Name: name}, nil
}

func (r updateNodeRequest) toInput() (service.UpdateNodeInput, error) {
	var in service.UpdateNodeInput
	var err error
	if in.Name, err = decodeString("name", r.Name); err != nil {
		return in, err
	}
	if in.MinNum, err = decodeInt("min_num", apperrors.CodeWindowInvalid, r.MinNum); err != nil {
		return in, err
	}
	if in.MaxNum, err = decodeInt("max_num", apperrors.CodeWindowInvalid, r.MaxNum); err != nil {
		return in, err
	}
	return in, nil
}

func (r regenerateRequest) count() (int, error) {
	n, err := decodeInt("count", apperrors.CodeCountInvalid, r.Count)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, apperrors.ErrFieldInvalidf("count", apperrors.CodeCountInvalid,
			fmt.Sprintf("count is required and must be between %d and %d",
				service.MinRegenerateCount, service.MaxRegenerateCount))
	}
	return *n, nil
}

// parseNodeID reads the :id path parameter. Anything that is not a positive
// integer cannot name a node and is reported as not found.
func parseNodeID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound(apperrors.CodeNodeNotFound,
			fmt.Sprintf("Node with id %s doesn't exist", raw))
	}
	return id, nil
}
