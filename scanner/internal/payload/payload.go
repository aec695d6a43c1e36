// Package payload turns decoded scan text into a subject reference.
//
// A payload is a JSON object {"id": ..., "full_name": ...}. The id is kept as
// opaque text; NumericID is the single place it is coerced to an integer.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eaglebank/scanpoint/shared/models"
	"github.com/eaglebank/scanpoint/shared/utils"
)

// SubjectRef identifies a subject as read from a scan.
type SubjectRef struct {
	ID          string
	DisplayName string
}

type scanned struct {
	ID       *models.SubjectID `json:"id" validate:"required"`
	FullName *string           `json:"full_name"`
}

var validate = validator.New()

// Parse validates raw and extracts the reference it carries.
func Parse(raw string) (SubjectRef, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '{' {
		return SubjectRef{}, &ParseError{Kind: Malformed, Err: errors.New("payload is not a JSON object")}
	}

	if !json.Valid(data) {
		return SubjectRef{}, &ParseError{Kind: Malformed, Err: errors.New("payload is not a single JSON value")}
	}
	var p scanned
	if err := json.Unmarshal(data, &p); err != nil {
		return SubjectRef{}, &ParseError{Kind: Malformed, Err: err}
	}

	if err := validate.Struct(p); err != nil {
		return SubjectRef{}, &ParseError{Kind: MissingID}
	}
	id := strings.TrimSpace(p.ID.String())
	if id == "" {
		return SubjectRef{}, &ParseError{Kind: MissingID}
	}

	ref := SubjectRef{ID: id}
	if p.FullName != nil {
		ref.DisplayName = strings.TrimSpace(*p.FullName)
	}
	return ref, nil
}

// NumericID coerces an opaque subject id for endpoints that require an
// integer key. Store keys start at 1, so zero and negative values are
// rejected as InvalidID along with non-integers.
func NumericID(id string) (int64, error) {
	n, err := utils.ParseUserID(id)
	if err != nil {
		return 0, &ParseError{Kind: InvalidID, Err: err}
	}
	return n, nil
}
