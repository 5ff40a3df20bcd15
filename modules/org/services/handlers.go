package services

import (
	"fmt"
	"net/http"
	"slices"
)

type RoleType string

const (
	RoleEngagement  RoleType = "engagement"
	RoleAssociation RoleType = "association"
	RoleRole        RoleType = "role"
	RoleLeave       RoleType = "leave"
	RoleManager     RoleType = "manager"
)

// Handler describes how relations of one role type are edited.
type Handler struct {
	RoleType         RoleType
	Attribute        Attribute
	ValidateOrgUnit  bool
	ValidateEmployee bool
	EditNote         string
	TerminateNote    string
}

type HandlerFactory func(cfg Config) Handler

var handlerFactories = map[RoleType]HandlerFactory{
	RoleEngagement:  relationHandler(RoleEngagement, true, true),
	RoleAssociation: relationHandler(RoleAssociation, true, true),
	RoleRole:        relationHandler(RoleRole, true, true),
	RoleLeave:       relationHandler(RoleLeave, false, true),
	RoleManager:     relationHandler(RoleManager, true, false),
}

func relationHandler(roleType RoleType, orgUnit, employee bool) HandlerFactory {
	return func(cfg Config) Handler {
		h := Handler{
			RoleType:         roleType,
			Attribute:        AttrFunctionValidity,
			ValidateOrgUnit:  orgUnit,
			ValidateEmployee: employee,
			EditNote:         fmt.Sprintf("Edit %s", roleType),
			TerminateNote:    fmt.Sprintf("Terminate %s", roleType),
		}
		if cfg.EditNote != "" {
			h.EditNote = cfg.EditNote
		}
		if cfg.TerminateNote != "" {
			h.TerminateNote = cfg.TerminateNote
		}
		return h
	}
}

func HandlerFor(roleType RoleType, cfg Config) (Handler, error) {
	factory, ok := handlerFactories[roleType]
	if !ok {
		return Handler{}, newServiceError(http.StatusBadRequest, CodeUnknownRoleType, fmt.Sprintf("unknown role type %q", roleType), nil)
	}
	return factory(cfg), nil
}

// RoleTypes lists the registered role types in name order.
func RoleTypes() []RoleType {
	out := make([]RoleType, 0, len(handlerFactories))
	for rt := range handlerFactories {
		out = append(out, rt)
	}
	slices.Sort(out)
	return out
}
