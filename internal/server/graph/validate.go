package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(op string, s any) error {
	if err := validate.Struct(s); err != nil {
		return validationError(op, "%s", formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must use the %s layout", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// preparePerson validates the input and fills in the resolved id
func preparePerson(in PersonInput) (PersonInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct("create_or_update_person", in); err != nil {
		return in, err
	}
	if in.ID == "" {
		id, err := ResolvePersonID(in.Name, in.Email)
		if err != nil {
			return in, err
		}
		in.ID = id
	}
	return in, nil
}

// initialStrength is the strength a person gets when first created
func (in PersonInput) initialStrength() string {
	if in.RelationshipStrength != "" {
		return in.RelationshipStrength
	}
	return StrengthFromInfluence(in.Influence)
}

func prepareOrganization(in OrganizationInput) (OrganizationInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct("create_or_update_organization", in); err != nil {
		return in, err
	}
	if in.ID == "" {
		id, err := ResolveOrgID(in.Name)
		if err != nil {
			return in, err
		}
		in.ID = id
	}
	return in, nil
}

func prepareContract(in ContractInput) (ContractInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct("create_or_update_contract", in); err != nil {
		return in, err
	}
	return in, nil
}

// entityTyper reports the stored type of id, or "" when id has no record
type entityTyper func(ctx context.Context, id string) (string, error)

// prepareEdge checks endpoints and sanitizes the relationship type. A missing
// endpoint type is taken from the resolver prefix of the id, then from the
// stored entity; an explicit unsupported type stays a consistency error.
func prepareEdge(ctx context.Context, in EdgeInput, lookup entityTyper) (EdgeInput, error) {
	const op = "create_relationship"
	in.FromID = strings.TrimSpace(in.FromID)
	in.ToID = strings.TrimSpace(in.ToID)
	if in.FromID == "" || in.ToID == "" {
		return in, validationError(op, "from_id and to_id are required")
	}
	relType, err := SanitizeRelationshipType(in.Type)
	if err != nil {
		return in, err
	}
	in.Type = relType

	if in.FromType, err = endpointType(ctx, in.FromID, in.FromType, lookup); err != nil {
		return in, err
	}
	if in.ToType, err = endpointType(ctx, in.ToID, in.ToType, lookup); err != nil {
		return in, err
	}
	if !isGraphEntity(in.FromType) || !isGraphEntity(in.ToType) {
		return in, consistencyError(op, "unsupported edge %s -> %s", in.FromType, in.ToType)
	}
	if in.Properties == nil {
		in.Properties = map[string]any{}
	}
	return in, nil
}

func endpointType(ctx context.Context, id, declared string, lookup entityTyper) (string, error) {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared, nil
	}
	if t := typeFromID(id); t != "" {
		return t, nil
	}
	if lookup != nil {
		t, err := lookup(ctx, id)
		if err != nil {
			return "", storageError("create_relationship", err)
		}
		if t != "" {
			return t, nil
		}
	}
	return "", consistencyError("create_relationship",
		"cannot infer the entity type of %s; pass from_type/to_type", id)
}

// typeFromID recognizes ids minted by the identity resolver
func typeFromID(id string) string {
	switch {
	case strings.HasPrefix(id, personIDPrefix):
		return EntityPerson
	case strings.HasPrefix(id, orgIDPrefix):
		return EntityOrganization
	}
	return ""
}

func isGraphEntity(t string) bool {
	return t == EntityPerson || t == EntityOrganization
}

// nullable turns an empty string into a nil query parameter
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
